package inventory

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation")
	ErrProductNotFound   = errors.New("product not found")
	ErrSizeNotFound      = errors.New("size not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports the first line of a reservation that could
// not be covered. It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Size      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s: available %d, requested %d",
		e.ProductID, e.Size, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
