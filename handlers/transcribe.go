package handlers

import (
	"net/http"

	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/models"
	"github.com/nijaru/vidscribe/validation"
)

const maxRequestBody = 64 << 10

// handleTranscribe runs a whole transcription within the request. The
// client's connection stays open until the transcript or an error is ready.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := validation.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: maxRequestBody,
		AllowedMethods:   []string{http.MethodPost},
		RequireJSON:      true,
	}); err != nil {
		if errors.StatusCode(err) == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", http.MethodPost)
		}
		respondError(w, r, "", err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req models.TranscriptionRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, "", err)
		return
	}

	result, err := s.service.Transcribe(r.Context(), req.URL)
	if err != nil {
		respondError(w, r, req.URL, err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}
