package utils

import (
	"errors"
	"net/http"
)

// APIError carries the HTTP classification of a failure so handlers can
// translate domain errors without leaking internal causes to callers.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// HTTPError resolves any error to a status code and a safe client message.
func HTTPError(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	return http.StatusInternalServerError, "Error while processing request"
}
