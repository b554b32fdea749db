package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CatalogHTTP struct {
	Svc *catalog.CatalogService
}

func productID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, false, offset, limit)
	if err != nil {
		return fail(c, l, "get_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := productID(c)
	if err != nil {
		l.Warn("get_product_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(c, l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	p, err := h.Svc.Create(ctx, catalog.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Price:       req.Price,
		Images:      req.Images,
		Bestseller:  req.Bestseller,
		Enabled:     enabled,
		Sizes:       req.Sizes,
		Promotion: promotion.Settings{
			IsOnPromotion: req.IsOnPromotion,
			Price:         req.PromotionPrice,
			Start:         req.PromotionStartDate,
			End:           req.PromotionEndDate,
		},
	})
	if err != nil {
		return fail(c, l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID.String())
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) SetStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_stock")

	id, err := productID(c)
	if err != nil {
		l.Warn("set_stock_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.SetStockRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_stock_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.SetStock(ctx, id, req.Size, req.Stock)
	if err != nil {
		return fail(c, l, "set_stock_error", err)
	}

	l.Info("set_stock_success", "product_id", id.String(), "size", req.Size, "stock", req.Stock)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) ToggleProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.toggle_product")

	id, err := productID(c)
	if err != nil {
		l.Warn("toggle_product_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	p, err := h.Svc.ToggleEnabled(ctx, id)
	if err != nil {
		return fail(c, l, "toggle_product_error", err)
	}

	l.Info("toggle_product_success", "product_id", id.String(), "enabled", p.Enabled)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) SetPromotion(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_promotion")

	id, err := productID(c)
	if err != nil {
		l.Warn("set_promotion_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.PromotionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_promotion_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.SetPromotion(ctx, id, promotion.Settings{
		IsOnPromotion: req.IsOnPromotion,
		Price:         req.PromotionPrice,
		Start:         req.PromotionStartDate,
		End:           req.PromotionEndDate,
	})
	if err != nil {
		return fail(c, l, "set_promotion_error", err)
	}

	l.Info("set_promotion_success", "product_id", id.String(), "is_on_promotion", p.IsOnPromotion)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) SweepPromotions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.sweep_promotions")

	n, err := h.Svc.SweepExpired(ctx)
	if err != nil {
		return fail(c, l, "sweep_promotions_error", err)
	}

	l.Info("sweep_promotions_success", "expired", n)
	return c.JSON(http.StatusOK, map[string]any{"expired": n})
}
