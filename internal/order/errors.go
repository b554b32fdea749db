package order

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrInvalidTransition = errors.New("invalid transition") // 409
	ErrGateway           = errors.New("gateway error")      // 502
)

// GatewayError means the order exists with its stock reserved but the payment
// provider call failed. The buyer may retry the charge for OrderID.
type GatewayError struct {
	OrderID uint
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("order %d: %v", e.OrderID, e.Err)
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
