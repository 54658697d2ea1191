package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nijaru/vidscribe/errors"
)

const maxURLLength = 2048

// ValidateURL checks that rawURL is a syntactically valid absolute http(s)
// URL. It never touches the network; reachability is the fetcher's concern.
func ValidateURL(rawURL string) (string, error) {
	const op = "validation.ValidateURL"

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.Validation(op, nil, "URL is required")
	}
	if len(rawURL) > maxURLLength {
		return "", errors.Validation(op, nil, "URL is too long")
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return "", errors.Validation(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", errors.Validation(op, nil, "URL must use HTTP or HTTPS")
	}

	if parsedURL.Hostname() == "" {
		return "", errors.Validation(op, nil, "URL must have a host")
	}

	return parsedURL.String(), nil
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	AllowedMethods   []string
	RequireJSON      bool
}

// ValidateRequest validates HTTP requests
func ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "validation.ValidateRequest"

	if len(opts.AllowedMethods) > 0 {
		methodAllowed := false
		for _, method := range opts.AllowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return errors.E(errors.KindValidation, op, nil,
				fmt.Sprintf("Method %s not allowed", r.Method), http.StatusMethodNotAllowed)
		}
	}

	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
			return errors.E(errors.KindValidation, op, nil,
				"Content-Type must be application/json", http.StatusUnsupportedMediaType)
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.E(errors.KindValidation, op, nil,
			"Request body too large", http.StatusRequestEntityTooLarge)
	}

	return nil
}
