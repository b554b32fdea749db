package order

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const reconcileBatch = 100

// Reconciler cancels gateway orders the buyer never paid for, returning their
// reserved stock.
type Reconciler struct {
	Svc      *OrderService
	Interval time.Duration
	Timeout  time.Duration
}

func NewReconciler(svc *OrderService, interval, timeout time.Duration) *Reconciler {
	return &Reconciler{Svc: svc, Interval: interval, Timeout: timeout}
}

// ReconcileOnce cancels unsettled Stripe and Razorpay orders whose latest
// charge attempt is more than Timeout old and returns how many it cancelled.
func (r *Reconciler) ReconcileOnce(ctx context.Context, now time.Time) (int, error) {
	l := logging.FromContext(ctx).With("component", "order_reconciler")

	ids, err := r.Svc.Repo.Abandoned(ctx, now.Add(-r.Timeout), reconcileBatch)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, id := range ids {
		err := r.Svc.cancel(ctx, id, "abandoned")
		switch {
		case err == nil:
			cancelled++
			l.Info("abandoned_order_cancelled", "order_id", id)
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			// settled or cancelled since the scan
		default:
			return cancelled, err
		}
	}
	return cancelled, nil
}

func (r *Reconciler) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("component", "order_reconciler")

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.ReconcileOnce(ctx, r.Svc.Now())
			if err != nil && ctx.Err() == nil {
				l.Error("reconcile_error", "error", err)
				continue
			}
			if n > 0 {
				l.Info("reconcile_success", "cancelled", n)
			}
		}
	}
}
