package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sullygrrr/digger/config"
	"github.com/Sullygrrr/digger/core/auth"
	"github.com/Sullygrrr/digger/core/likes"
	"github.com/Sullygrrr/digger/core/queue"
	"github.com/Sullygrrr/digger/core/tags"
	"github.com/Sullygrrr/digger/db"
	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/repository"
	"github.com/Sullygrrr/digger/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxMB,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: 3,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseDB()

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}
	db.CloseGormDB()

	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	affinityRepo := repository.NewMySQLAffinityRepository(db.DB)
	mediaStore := storage.NewMediaStore(cfg)
	ledger := likes.NewLedger(db.DB, affinityRepo)
	suggester := tags.NewSuggester(db.RedisClient)

	queueCfg := queue.Config{
		Size:            cfg.QueueSize,
		TopTags:         cfg.TopTagsCount,
		SeenProbability: cfg.SeenProbability,
		LikeProbability: cfg.LikeProbability,
		Jitter:          cfg.RankJitter,
	}
	queues := queue.NewRegistry(func(userID int64) *queue.Manager {
		return queue.NewManager(userID, trackRepo, affinityRepo, mediaStore, queueCfg, nil)
	})

	apiHandler := NewAPIHandler(trackRepo, userRepo, affinityRepo, ledger, queues, mediaStore, suggester, cfg)

	router := mux.NewRouter()

	// CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Discovery feed endpoints
	router.HandleFunc("/api/feed", apiHandler.AuthMiddleware(apiHandler.FeedHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/feed/next", apiHandler.AuthMiddleware(apiHandler.FeedNextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/feed/seed", apiHandler.AuthMiddleware(apiHandler.FeedSeedHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/feed/reset", apiHandler.AuthMiddleware(apiHandler.FeedResetHandler)).Methods(http.MethodPost)

	// Track endpoints
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/random", apiHandler.AuthMiddleware(apiHandler.RandomTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/like", apiHandler.AuthMiddleware(apiHandler.ToggleLikeHandler)).Methods(http.MethodPost)

	// Profile endpoints
	router.HandleFunc("/api/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/me/username", apiHandler.AuthMiddleware(apiHandler.UpdateUsernameHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/me/tracks", apiHandler.AuthMiddleware(apiHandler.MyTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/me/likes", apiHandler.AuthMiddleware(apiHandler.MyLikesHandler)).Methods(http.MethodGet)

	// Tag endpoints
	router.HandleFunc("/api/tags/suggest", apiHandler.SuggestTagsHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped.")
}
