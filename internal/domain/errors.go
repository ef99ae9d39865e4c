package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for failures the dashboard reacts to.
var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrDuplicateLabel = errors.New("label already in use")
	ErrViewNotFound   = errors.New("dashboard view not found")
	ErrUnauthorized   = errors.New("not authenticated")
)

// Error codes the identity API puts in the "error" field of a 422 body.
const (
	CodeIncorrectPassword = "incorrect_password"
	CodeInvalidPassword   = "invalid_password"
	CodeInvalidCode       = "invalid_code"
)

// APIError is a non-2xx answer from the identity API.
type APIError struct {
	Status  int
	Code    string
	Message string
	// Op names the client operation that failed, e.g. "RegisterEmail".
	Op string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: identity api returned %d", e.Op, e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is lets errors.Is match the sentinels that correspond to a status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrDuplicateLabel:
		return e.Status == http.StatusConflict
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// StatusOf returns the HTTP status carried by err. Errors that never reached
// the identity API (transport failures, cancelled contexts) report 500.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the API error code carried by err, if any.
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
