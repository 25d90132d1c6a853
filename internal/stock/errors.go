package stock

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidRequest    = errors.New("invalid stock request")
	ErrConcurrentChange  = errors.New("quantity changed since it was read")
)

// InsufficientStockError reports a rejected decrement. It matches
// ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID int64
	Location  string
	Attempted int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d at %s: have %d, need %d",
		e.ProductID, e.Location, e.Available, e.Attempted)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
