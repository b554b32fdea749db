package order

import "fmt"

const (
	StatusPlaced         = "Order Placed"
	StatusPacking        = "Packing"
	StatusShipped        = "Shipped"
	StatusOutForDelivery = "Out for delivery"
	StatusDelivered      = "Delivered"
)

// Statuses lists the fulfilment stages in the only order they may be reached.
var Statuses = []string{
	StatusPlaced,
	StatusPacking,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

func statusIndex(s string) int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

// CanTransition accepts the current status or any later one. An unknown
// target is malformed input rather than a bad transition.
func CanTransition(from, to string) error {
	ti := statusIndex(to)
	if ti < 0 {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	fi := statusIndex(from)
	if fi < 0 {
		return fmt.Errorf("%w: order is in unknown status %q", ErrInvalidTransition, from)
	}
	if ti < fi {
		return fmt.Errorf("%w: cannot move from %q back to %q", ErrInvalidTransition, from, to)
	}
	return nil
}

// reachableFrom lists every status from which to may be entered.
func reachableFrom(to string) []string {
	i := statusIndex(to)
	if i < 0 {
		return nil
	}
	out := make([]string, i+1)
	copy(out, Statuses[:i+1])
	return out
}
