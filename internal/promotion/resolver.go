package promotion

import (
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation")

// Promotion is either NoPromotion or ActivePromotion. It is derived from the
// stored fields on every read instead of trusting is_on_promotion alone.
type Promotion interface {
	active() bool
}

type NoPromotion struct{}

func (NoPromotion) active() bool { return false }

type ActivePromotion struct {
	Price decimal.Decimal
	Start *time.Time
	End   time.Time
}

func (ActivePromotion) active() bool { return true }

// Resolve reports the promotion in force at now. The window is half-open:
// [start, end). A missing start counts as already started; a missing end
// never yields an active promotion.
func Resolve(p *models.Product, now time.Time) Promotion {
	if p == nil || !p.IsOnPromotion || !p.PromotionPrice.Valid {
		return NoPromotion{}
	}
	if !p.PromotionPrice.Decimal.LessThan(p.Price) {
		return NoPromotion{}
	}
	if p.PromotionEndDate == nil || !now.Before(*p.PromotionEndDate) {
		return NoPromotion{}
	}
	if p.PromotionStartDate != nil && now.Before(*p.PromotionStartDate) {
		return NoPromotion{}
	}
	return ActivePromotion{
		Price: p.PromotionPrice.Decimal,
		Start: p.PromotionStartDate,
		End:   *p.PromotionEndDate,
	}
}

func IsActive(p *models.Product, now time.Time) bool {
	return Resolve(p, now).active()
}

func EffectivePrice(p *models.Product, now time.Time) decimal.Decimal {
	if ap, ok := Resolve(p, now).(ActivePromotion); ok {
		return ap.Price
	}
	return p.Price
}

// DiscountFraction is (price - promotionPrice) / price while a promotion is
// active and 0 otherwise.
func DiscountFraction(p *models.Product, now time.Time) float64 {
	ap, ok := Resolve(p, now).(ActivePromotion)
	if !ok || !p.Price.IsPositive() {
		return 0
	}
	f, _ := p.Price.Sub(ap.Price).Div(p.Price).Float64()
	return f
}

type Settings struct {
	IsOnPromotion bool
	Price         decimal.NullDecimal
	Start         *time.Time
	End           *time.Time
}

// Validate checks promotion fields an admin wants to store against the base
// price. Disabling a promotion is always allowed.
func Validate(base decimal.Decimal, s Settings) error {
	if !s.IsOnPromotion {
		return nil
	}
	if !s.Price.Valid {
		return fmt.Errorf("%w: promotion price required", ErrValidation)
	}
	if !s.Price.Decimal.IsPositive() {
		return fmt.Errorf("%w: promotion price must be > 0", ErrValidation)
	}
	if !s.Price.Decimal.LessThan(base) {
		return fmt.Errorf("%w: promotion price must be below price", ErrValidation)
	}
	if s.End == nil {
		return fmt.Errorf("%w: promotion end date required", ErrValidation)
	}
	if s.Start != nil && !s.End.After(*s.Start) {
		return fmt.Errorf("%w: promotion end must follow start", ErrValidation)
	}
	return nil
}
