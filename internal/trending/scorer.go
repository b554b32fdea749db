package trending

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
	"github.com/google/uuid"
)

type Catalog interface {
	EnabledProducts(ctx context.Context) ([]models.Product, error)
}

type Sales interface {
	SalesSince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error)
}

type Scorer struct {
	Catalog  Catalog
	Sales    Sales
	Store    Store
	Interval time.Duration
	Now      func() time.Time

	nudge chan struct{}
}

func NewScorer(catalog Catalog, sales Sales, store Store, interval time.Duration) *Scorer {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Scorer{
		Catalog:  catalog,
		Sales:    sales,
		Store:    store,
		Interval: interval,
		Now:      func() time.Time { return time.Now().UTC() },
		nudge:    make(chan struct{}, 1),
	}
}

func (s *Scorer) Recompute(ctx context.Context) ([]Winner, error) {
	now := s.Now()

	products, err := s.Catalog.EnabledProducts(ctx)
	if err != nil {
		metrics.TrendingRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}
	sales, err := s.Sales.SalesSince(ctx, now.Add(-SalesWindow))
	if err != nil {
		metrics.TrendingRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}

	winners := Rank(products, sales, now)
	if err := s.Store.Save(ctx, winners); err != nil {
		metrics.TrendingRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TrendingRecomputes.WithLabelValues("ok").Inc()
	return winners, nil
}

// Top returns the stored snapshot, computing one first if none exists yet.
func (s *Scorer) Top(ctx context.Context) ([]Winner, error) {
	winners, ok, err := s.Store.Load(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("trending_load_error", "component", "trending", "error", err)
	}
	if ok {
		return winners, nil
	}
	return s.Recompute(ctx)
}

// Notify asks the run loop for an early recompute. It never blocks; nudges
// that arrive while one is pending are merged.
func (s *Scorer) Notify() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Scorer) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("component", "trending")

	recompute := func() {
		if _, err := s.Recompute(ctx); err != nil && ctx.Err() == nil {
			l.Error("trending_recompute_error", "error", err)
		}
	}

	recompute()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			recompute()
		case <-s.nudge:
			recompute()
		}
	}
}
