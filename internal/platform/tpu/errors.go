package tpu

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// apiCode returns the HTTP status of a TPU API error, or 0.
func apiCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return apiCode(err) == http.StatusNotFound
}

// IsAlreadyExists checks if an error indicates the resource already exists.
func IsAlreadyExists(err error) bool {
	return apiCode(err) == http.StatusConflict
}

// isTransient reports whether a failed call should be retried: rate limits,
// server errors and transport failures. Other API errors are final.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := apiCode(err)
	switch {
	case code == 0:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
