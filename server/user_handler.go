package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/repository"
)

// UpdateUsernameHandler changes the caller's display name.
func (h *APIHandler) UpdateUsernameHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > 100 {
		http.Error(w, "Username must be 1-100 characters", http.StatusBadRequest)
		return
	}

	if err := h.userRepo.UpdateUsername(r.Context(), userID, username); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}
		logger.Error("failed to update username", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"username": username})
}

// MeHandler returns the caller's profile.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error("failed to load user", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
