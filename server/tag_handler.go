package server

import (
	"net/http"

	"github.com/Sullygrrr/digger/logger"
)

// SuggestTagsHandler returns up to five known tags matching the given
// prefix, most used first.
func (h *APIHandler) SuggestTagsHandler(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")

	suggestions, err := h.suggester.Suggest(r.Context(), prefix)
	if err != nil {
		logger.Warn("tag suggestion lookup failed", logger.ErrorField(err))
		// Autocomplete is cosmetic; degrade to an empty list.
		respondJSON(w, http.StatusOK, []string{})
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	respondJSON(w, http.StatusOK, suggestions)
}
