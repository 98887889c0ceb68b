package server

import (
	"errors"
	"net/http"

	"github.com/Sullygrrr/digger/core/likes"
	"github.com/Sullygrrr/digger/logger"

	"github.com/gorilla/mux"
)

// ToggleLikeHandler flips the caller's like state on a track and returns the
// confirmed state. On a toggle failure the client must roll its optimistic
// indicator back to the last confirmed value.
func (h *APIHandler) ToggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID := mux.Vars(r)["id"]

	res, err := h.ledger.Toggle(r.Context(), userID, trackID)
	if err != nil {
		if errors.Is(err, likes.ErrTrackNotFound) {
			http.Error(w, "Track not found", http.StatusNotFound)
			return
		}
		logger.Error("like toggle failed",
			logger.Int64("userId", userID),
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		http.Error(w, "Like toggle failed, state unchanged", http.StatusConflict)
		return
	}

	// Likes feed the global tag popularity counters too; best-effort.
	delta := 1
	if !res.Liked {
		delta = -1
	}
	if err := h.suggester.Record(r.Context(), res.Track.Tags, delta); err != nil {
		logger.Warn("failed to record tag usage", logger.ErrorField(err))
	}

	respondJSON(w, http.StatusOK, res)
}

// MyLikesHandler returns the caller's liked-track snapshots, most recently
// liked first.
func (h *APIHandler) MyLikesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	liked, err := h.trackRepo.ListLikedTracks(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list liked tracks", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]interface{}, len(liked))
	for i, lt := range liked {
		out[i] = h.resolveLikedTrack(r.Context(), lt)
	}
	respondJSON(w, http.StatusOK, out)
}
