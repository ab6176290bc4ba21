package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds shared by every service. Handlers match with errors.Is and
// translate to HTTP status codes; nothing transport-specific lives here.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state for this action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("resource conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")

	// ErrExternalServiceDegraded marks a failed call to an external
	// collaborator. It is absorbed by the caller (fallback path) and must
	// never reach a handler.
	ErrExternalServiceDegraded = errors.New("external service degraded")
)

// TransitionError reports which transition was attempted so clients can see
// both the current and the requested status.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ConflictError names the resource (driver or vehicle) already committed to
// another active delivery.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s is already assigned to another active delivery: %s", e.Resource, e.Detail)
	}
	return fmt.Sprintf("%s is already assigned to another active delivery", e.Resource)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
