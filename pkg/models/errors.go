package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrItemNotFound      = errors.New("menu item not found")
	ErrNoPendingOrder    = errors.New("no pending order")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEventsUnavailable = errors.New("order event log unavailable")
)

// ValidationError lists every problem found in a rejected input.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError is returned when a status change is not in the
// transition table.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ItemNotFoundError carries up to three suggestions for the caller.
type ItemNotFoundError struct {
	Name        string
	Size        string
	Suggestions []MenuItem
}

func (e *ItemNotFoundError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrItemNotFound, e.Name, e.Size)
	}
	return fmt.Sprintf("%s: %s", ErrItemNotFound, e.Name)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }
