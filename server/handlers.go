package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Sullygrrr/digger/config"
	"github.com/Sullygrrr/digger/core/likes"
	"github.com/Sullygrrr/digger/core/queue"
	"github.com/Sullygrrr/digger/core/tags"
	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/model"
	"github.com/Sullygrrr/digger/repository"
	"github.com/Sullygrrr/digger/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	trackRepo    repository.TrackRepository
	userRepo     repository.UserRepository
	affinityRepo repository.AffinityRepository
	ledger       *likes.Ledger
	queues       *queue.Registry
	media        *storage.MediaStore
	suggester    *tags.Suggester
	cfg          *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	affinityRepo repository.AffinityRepository,
	ledger *likes.Ledger,
	queues *queue.Registry,
	media *storage.MediaStore,
	suggester *tags.Suggester,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:    trackRepo,
		userRepo:     userRepo,
		affinityRepo: affinityRepo,
		ledger:       ledger,
		queues:       queues,
		media:        media,
		suggester:    suggester,
		cfg:          cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// resolveTrack swaps the stored object keys for servable URLs on a copy of
// the track.
func (h *APIHandler) resolveTrack(ctx context.Context, t *model.Track) *model.Track {
	out := *t
	if u, err := h.media.URL(ctx, t.AudioURL); err == nil {
		out.AudioURL = u
	} else {
		logger.Warn("failed to resolve audio URL", logger.String("trackId", t.ID), logger.ErrorField(err))
	}
	if t.MediaURL != "" {
		if u, err := h.media.URL(ctx, t.MediaURL); err == nil {
			out.MediaURL = u
		}
	}
	return &out
}

func (h *APIHandler) resolveTracks(ctx context.Context, in []*model.Track) []*model.Track {
	out := make([]*model.Track, len(in))
	for i, t := range in {
		out[i] = h.resolveTrack(ctx, t)
	}
	return out
}

func (h *APIHandler) resolveLikedTrack(ctx context.Context, lt *model.LikedTrack) *model.LikedTrack {
	out := *lt
	if u, err := h.media.URL(ctx, lt.AudioURL); err == nil {
		out.AudioURL = u
	}
	if lt.MediaURL != "" {
		if u, err := h.media.URL(ctx, lt.MediaURL); err == nil {
			out.MediaURL = u
		}
	}
	return &out
}
