package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Sullygrrr/digger/core/tags"
	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

func safeFilename(name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = "untitled"
	}
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	if len(base) > 150 {
		base = base[:150]
	}
	if base == "" {
		base = "upload"
	}
	return base
}

func (h *APIHandler) storeUpload(r *http.Request, userID int64, folder string, file multipart.File, header *multipart.FileHeader) (string, error) {
	defer file.Close()
	key := fmt.Sprintf("%s/%d/%d_%s", folder, userID, time.Now().UnixNano(), safeFilename(header.Filename))
	contentType := header.Header.Get("Content-Type")
	return h.media.Upload(r.Context(), key, file, header.Size, contentType)
}

// UploadTrackHandler handles track uploads and metadata.
// Expected multipart form fields:
//   - audioFile: the audio file (required)
//   - mediaFile: cover image or looping video (optional)
//   - title, description
//   - tags: JSON array of strings, max 8
//   - spotify, deezer, appleMusic, youtube: platform links (optional)
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Missing 'title' in form", http.StatusBadRequest)
		return
	}

	var rawTags []string
	if v := r.FormValue("tags"); v != "" {
		if err := json.Unmarshal([]byte(v), &rawTags); err != nil {
			http.Error(w, "Field 'tags' must be a JSON array of strings", http.StatusBadRequest)
			return
		}
	}
	trackTags, err := tags.NormalizeSet(rawTags)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid tags: %v", err), http.StatusBadRequest)
		return
	}

	platforms := model.PlatformLinks{
		Spotify:    strings.TrimSpace(r.FormValue("spotify")),
		Deezer:     strings.TrimSpace(r.FormValue("deezer")),
		AppleMusic: strings.TrimSpace(r.FormValue("appleMusic")),
		YouTube:    strings.TrimSpace(r.FormValue("youtube")),
	}
	if bad := platforms.Validate(); bad != "" {
		http.Error(w, fmt.Sprintf("Invalid %s link", bad), http.StatusBadRequest)
		return
	}

	audioFile, audioHeader, err := r.FormFile("audioFile")
	if err != nil {
		http.Error(w, "Missing 'audioFile' in form", http.StatusBadRequest)
		return
	}
	audioKey, err := h.storeUpload(r, userID, "audio", audioFile, audioHeader)
	if err != nil {
		logger.Error("failed to store audio upload", logger.ErrorField(err))
		http.Error(w, "Failed to store audio file", http.StatusInternalServerError)
		return
	}

	var mediaKey, mediaType string
	if mediaFile, mediaHeader, err := r.FormFile("mediaFile"); err == nil {
		contentType := mediaHeader.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "video/"):
			mediaType = model.MediaTypeVideo
		case strings.HasPrefix(contentType, "image/"):
			mediaType = model.MediaTypeImage
		default:
			ext := strings.ToLower(filepath.Ext(mediaHeader.Filename))
			if ext == ".mp4" || ext == ".webm" || ext == ".mov" {
				mediaType = model.MediaTypeVideo
			} else {
				mediaType = model.MediaTypeImage
			}
		}
		mediaKey, err = h.storeUpload(r, userID, "media", mediaFile, mediaHeader)
		if err != nil {
			logger.Error("failed to store media upload", logger.ErrorField(err))
			http.Error(w, "Failed to store media file", http.StatusInternalServerError)
			return
		}
	}

	track := &model.Track{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		AudioURL:    audioKey,
		MediaURL:    mediaKey,
		MediaType:   mediaType,
		Tags:        trackTags,
		Platforms:   platforms,
		CreatedAt:   time.Now(),
	}

	if err := h.trackRepo.CreateTrack(r.Context(), track); err != nil {
		logger.Error("failed to create track", logger.ErrorField(err))
		http.Error(w, "Failed to create track", http.StatusInternalServerError)
		return
	}

	// Global tag usage drives autocomplete; best-effort.
	if err := h.suggester.Record(r.Context(), trackTags, 1); err != nil {
		logger.Warn("failed to record tag usage", logger.ErrorField(err))
	}

	logger.Info("track uploaded",
		logger.String("trackId", track.ID),
		logger.Int64("userId", userID),
		logger.String("title", track.Title))

	respondJSON(w, http.StatusCreated, h.resolveTrack(r.Context(), track))
}

// GetTrackHandler returns one track by ID.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]
	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to load track", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, h.resolveTrack(r.Context(), track))
}

// MyTracksHandler returns the caller's uploads, newest first.
func (h *APIHandler) MyTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tracks, err := h.trackRepo.GetTracksByUserID(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list user tracks", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, h.resolveTracks(r.Context(), tracks))
}

// RandomTrackHandler returns a uniformly random track from the caller's
// candidate pool, or 204 when the pool is empty.
func (h *APIHandler) RandomTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	candidates, err := h.trackRepo.Candidates(r.Context(), userID)
	if err != nil {
		logger.Error("failed to fetch candidates", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(candidates) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	track := candidates[rand.Intn(len(candidates))]
	respondJSON(w, http.StatusOK, h.resolveTrack(r.Context(), track))
}
