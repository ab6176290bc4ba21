package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := &TransitionError{From: "delivered", To: "picked_up"}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError must match ErrInvalidTransition")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("TransitionError must not match ErrConflict")
	}
	if got := err.Error(); got != "invalid status transition from delivered to picked_up" {
		t.Errorf("message = %q", got)
	}
}

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := &ConflictError{Resource: "driver", Detail: "delivery d-9"}

	if !errors.Is(err, ErrConflict) {
		t.Error("ConflictError must match ErrConflict")
	}
	if got := err.Error(); got != "driver is already assigned to another active delivery: delivery d-9" {
		t.Errorf("message = %q", got)
	}

	bare := &ConflictError{Resource: "vehicle"}
	if got := bare.Error(); got != "vehicle is already assigned to another active delivery" {
		t.Errorf("message without detail = %q", got)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidTransition, http.StatusUnprocessableEntity},
		{ErrInvalidState, http.StatusUnprocessableEntity},
		{ErrValidation, http.StatusBadRequest},
		{&TransitionError{From: "pending", To: "delivered"}, http.StatusUnprocessableEntity},
		{&ConflictError{Resource: "driver"}, http.StatusConflict},
		{fmt.Errorf("%w: coordinates out of range", ErrValidation), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
