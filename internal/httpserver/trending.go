package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/trending"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type TrendingHTTP struct {
	Scorer *trending.Scorer
}

func (h *TrendingHTTP) GetTrending(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_trending")

	winners, err := h.Scorer.Top(ctx)
	if err != nil {
		return fail(c, l, "get_trending_error", err)
	}

	products := make([]models.Product, 0, len(winners))
	for _, w := range winners {
		products = append(products, w.Product)
	}
	return c.JSON(http.StatusOK, products)
}
