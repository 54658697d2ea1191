package errors

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := Validation("op", nil, "URL is required")
	assert.Equal(t, "URL is required", err.Error())

	cause := fmt.Errorf("exit status 1")
	err = Download("op", cause, "Failed to download audio")
	assert.Equal(t, "Failed to download audio: exit status 1", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		code int
	}{
		{"validation", Validation("op", nil, "bad"), KindValidation, http.StatusBadRequest},
		{"download", Download("op", nil, "bad"), KindDownload, http.StatusUnprocessableEntity},
		{"transcription", Transcription("op", nil, "bad"), KindTranscription, http.StatusInternalServerError},
		{"internal", Internal("op", nil, "bad"), KindInternal, http.StatusInternalServerError},
		{"rate limit", RateLimited("op"), KindRateLimit, http.StatusTooManyRequests},
		{"timed out", TimedOut("op", nil), KindInternal, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := pkgerrors.Wrap(Download("op", nil, "no audio"), "fetch")
	assert.Equal(t, KindDownload, KindOf(err))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(err))

	plain := fmt.Errorf("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(plain))
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal("op", fmt.Errorf("disk on fire"), "Unexpected error")
	assert.Equal(t, "Unexpected error", Message(err))
	assert.Equal(t, "Internal server error", Message(fmt.Errorf("raw")))

	err = Download("op", fmt.Errorf("video unavailable"), "Failed to download audio")
	assert.Equal(t, "Failed to download audio: video unavailable", Message(err))
}

func TestTimedOutMessage(t *testing.T) {
	err := TimedOut("op", fmt.Errorf("context deadline exceeded"))
	assert.Equal(t, "Transcription timed out", Message(err))
}
