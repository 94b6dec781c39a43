package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means no usable session exists yet. Callers suppress the
	// action instead of reporting a failure.
	ErrNotReady = errors.New("session not ready")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidEmail  = errors.New("invalid email")

	// ErrCoupleScopeUnavailable rejects couple-scoped transactions for users
	// without a couple link.
	ErrCoupleScopeUnavailable = &ValidationError{Field: "scope", Message: "Necesitas vincular a tu pareja para usar este ámbito"}
)

// ValidationError reports malformed input caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
