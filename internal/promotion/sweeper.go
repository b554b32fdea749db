package promotion

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
	"gorm.io/gorm"
)

type Sweeper struct {
	DB       *gorm.DB
	Interval time.Duration
	Now      func() time.Time
}

func NewSweeper(db *gorm.DB, interval time.Duration) *Sweeper {
	return &Sweeper{DB: db, Interval: interval, Now: time.Now}
}

// SweepExpired switches off every promotion whose end date lies before now
// and returns how many products it touched. Running it twice is harmless.
func (s *Sweeper) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_on_promotion = ? AND promotion_end_date IS NOT NULL AND promotion_end_date < ?", true, now.UTC()).
		Update("is_on_promotion", false)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.PromotionsExpired.Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("component", "promotion_sweeper")

	sweep := func() {
		n, err := s.SweepExpired(ctx, s.Now())
		if err != nil {
			if ctx.Err() == nil {
				l.Error("promotion_sweep_error", "error", err)
			}
			return
		}
		if n > 0 {
			l.Info("promotion_sweep_success", "expired", n)
		}
	}

	sweep()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}
