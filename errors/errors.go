package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind names the pipeline stage an error came from.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindDownload      Kind = "download"
	KindTranscription Kind = "transcription"
	KindInternal      Kind = "internal"
	KindRateLimit     Kind = "rate_limit"
)

type Error struct {
	Kind    Kind   `json:"stage"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(kind Kind, op string, err error, message string, code int) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Validation reports a malformed or missing request field.
func Validation(op string, err error, message string) *Error {
	return E(KindValidation, op, err, message, http.StatusBadRequest)
}

// Download reports a fetch-stage failure. The URL was well formed but the
// origin could not produce audio, so it is treated as unprocessable input.
func Download(op string, err error, message string) *Error {
	return E(KindDownload, op, err, message, http.StatusUnprocessableEntity)
}

func Transcription(op string, err error, message string) *Error {
	return E(KindTranscription, op, err, message, http.StatusInternalServerError)
}

func Internal(op string, err error, message string) *Error {
	return E(KindInternal, op, err, message, http.StatusInternalServerError)
}

// TimedOut reports that the service's own deadline expired mid-pipeline.
func TimedOut(op string, err error) *Error {
	return E(KindInternal, op, err, "Transcription timed out", http.StatusGatewayTimeout)
}

func RateLimited(op string) *Error {
	return E(KindRateLimit, op, nil, "Rate limit exceeded", http.StatusTooManyRequests)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors that carry no kind.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err. Errors outside the
// taxonomy never leak their text.
func Message(err error) string {
	if appErr, ok := As(err); ok {
		if appErr.Err != nil && appErr.Kind != KindInternal {
			return appErr.Error()
		}
		return appErr.Message
	}
	return "Internal server error"
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
