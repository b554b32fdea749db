package trending

import (
	"math"
	"sort"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/google/uuid"
)

const (
	TopN        = 5
	SalesWindow = 7 * 24 * time.Hour

	basePoints     = 10
	pointsPerUnit  = 4
	maxSalesPoints = 40
	discountWeight = 30
	scarceStock    = 20
	limitedStock   = 50
	scarceBonus    = 20
	limitedBonus   = 15
	plentifulBonus = 10
)

type Winner struct {
	Product models.Product `json:"product"`
	Score   float64        `json:"score"`
}

// Score rates one product from units sold in the sales window, the depth of an
// active discount and how little stock is left.
func Score(p *models.Product, unitsSold int, now time.Time) float64 {
	score := float64(basePoints)
	score += math.Min(float64(unitsSold*pointsPerUnit), maxSalesPoints)

	if promotion.IsActive(p, now) {
		score += promotion.DiscountFraction(p, now) * discountWeight
	}

	if total := p.TotalStock(); total > 0 {
		switch {
		case total <= scarceStock:
			score += scarceBonus
		case total <= limitedStock:
			score += limitedBonus
		default:
			score += plentifulBonus
		}
	}
	return score
}

// Rank scores enabled products, keeps catalog order among equal scores and
// returns exactly TopN entries by repeating the ranking when fewer exist.
func Rank(products []models.Product, sales map[uuid.UUID]int, now time.Time) []Winner {
	ranked := make([]Winner, 0, len(products))
	for i := range products {
		p := products[i]
		if !p.Enabled {
			continue
		}
		ranked = append(ranked, Winner{Product: p, Score: Score(&p, sales[p.ID], now)})
	}
	if len(ranked) == 0 {
		return []Winner{}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	winners := make([]Winner, TopN)
	for i := range winners {
		winners[i] = ranked[i%len(ranked)]
	}
	return winners
}
