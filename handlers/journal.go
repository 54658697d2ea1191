package handlers

import (
	"net/http"
	"strconv"

	"github.com/nijaru/vidscribe/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func (s *Server) handleListTranscriptions(w http.ResponseWriter, r *http.Request) {
	const op = "Server.handleListTranscriptions"

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			respondError(w, r, "", errors.Validation(op, nil, "limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	records, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, "", errors.Internal(op, err, "Failed to read journal"))
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"transcriptions": records,
		"count":          len(records),
	})
}
