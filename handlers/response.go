package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/logger"
	"github.com/nijaru/vidscribe/models"
	"github.com/sirupsen/logrus"
)

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("Failed to encode response")
	}
}

// respondError writes the failure payload for err. url is echoed back when
// the request got far enough to have one.
func respondError(w http.ResponseWriter, r *http.Request, url string, err error) {
	code := errors.StatusCode(err)
	kind := errors.KindOf(err)

	entry := logger.FromContext(r.Context()).WithFields(logrus.Fields{
		"error":  err,
		"status": code,
		"stage":  kind,
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Info("Request rejected")
	}

	respondJSON(w, r, code, models.ErrorResponse{
		URL:       url,
		Status:    models.StatusFailure,
		Stage:     string(kind),
		Error:     errors.Message(err),
		RequestID: logger.RequestID(r.Context()),
	})
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.E(errors.KindValidation, "readJSON", err, "Request body too large", http.StatusRequestEntityTooLarge)
		}
		return errors.Validation("readJSON", err, "Invalid JSON format")
	}
	return nil
}
