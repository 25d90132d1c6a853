package repo

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrProductNotFound       = fmt.Errorf("product %w", ErrNotFound)
	ErrLocationNotFound      = fmt.Errorf("location %w", ErrNotFound)
	ErrSessionNotFound       = fmt.Errorf("session %w", ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrRuleNotFound          = fmt.Errorf("notify rule %w", ErrNotFound)
	ErrInvariantViolation    = errors.New("quantity would become negative")
	ErrDuplicatedValueUnique = errors.New("unique constraint violation")
	ErrSessionAlreadyOpen    = errors.New("location already has an open session")
	ErrSessionNotOpen        = errors.New("session is not open")
	ErrInvalidMutation       = errors.New("invalid mutation")
	ErrInvalidFilter         = errors.New("offset must be non-negative")
)

// NegativeQuantityError reports the leg that would have driven a quantity
// below zero. It matches ErrInvariantViolation.
type NegativeQuantityError struct {
	ProductID int64
	Location  string
	Available int64
	Delta     int64
}

func (e *NegativeQuantityError) Error() string {
	return fmt.Sprintf("product %d at %s: have %d, change %d: %v",
		e.ProductID, e.Location, e.Available, e.Delta, ErrInvariantViolation)
}

func (e *NegativeQuantityError) Unwrap() error {
	return ErrInvariantViolation
}
