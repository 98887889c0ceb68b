package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Sullygrrr/digger/cache"
	"github.com/Sullygrrr/digger/core/queue"
	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/model"
)

// feedResponse is the discovery feed state handed to the client.
type feedResponse struct {
	Track         *model.Track     `json:"track"`
	State         queue.State      `json:"state"`
	PreferredTags []model.TagCount `json:"preferredTags"`
}

func (h *APIHandler) saveFeedSnapshot(userID int64, m *queue.Manager) {
	// Best-effort mirror of the in-memory buffer for inspection.
	if err := cache.SaveFeedSnapshot(context.Background(), userID, m.BufferedIDs()); err != nil {
		logger.Debug("failed to save feed snapshot", logger.Int64("userId", userID), logger.ErrorField(err))
	}
}

// FeedHandler returns the current head of the caller's discovery queue,
// filling the queue first if this session is fresh.
func (h *APIHandler) FeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	m := h.queues.Get(userID)
	if m.State() == queue.StateLoading {
		m.Fill(r.Context())
		h.saveFeedSnapshot(userID, m)
	}

	var track *model.Track
	if t := m.Current(); t != nil {
		track = h.resolveTrack(r.Context(), t)
	}
	respondJSON(w, http.StatusOK, feedResponse{
		Track:         track,
		State:         m.State(),
		PreferredTags: m.PreferredTags(),
	})
}

// FeedNextHandler pops the head of the queue and returns it. An empty queue
// yields 204, which the client renders as "nothing available".
func (h *APIHandler) FeedNextHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	m := h.queues.Get(userID)
	track := m.Advance()
	h.saveFeedSnapshot(userID, m)

	if track == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, h.resolveTrack(r.Context(), track))
}

// FeedSeedHandler installs a track picked out-of-band (e.g. from the liked
// list) as the sole queue entry.
func (h *APIHandler) FeedSeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" {
		http.Error(w, "trackId is required", http.StatusBadRequest)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), req.TrackID)
	if err != nil {
		logger.Error("failed to load seed track", logger.String("trackId", req.TrackID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	m := h.queues.Get(userID)
	m.SeedInitial(r.Context(), track)
	h.saveFeedSnapshot(userID, m)

	var current *model.Track
	if t := m.Current(); t != nil {
		current = h.resolveTrack(r.Context(), t)
	}
	respondJSON(w, http.StatusOK, feedResponse{
		Track: current,
		State: m.State(),
	})
}

// FeedResetHandler clears the caller's queue and seen history.
func (h *APIHandler) FeedResetHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.queues.Get(userID).Reset()
	if err := cache.ClearFeedSnapshot(r.Context(), userID); err != nil {
		logger.Debug("failed to clear feed snapshot", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
