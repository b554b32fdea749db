package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/wishlist"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type WishlistHTTP struct {
	Svc *wishlist.WishlistService
}

func (h *WishlistHTTP) GetWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.get_wishlist")

	uid, err := userID(c)
	if err != nil {
		l.Warn("get_wishlist_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Svc.Get(ctx, uid)
	if err != nil {
		return fail(c, l, "get_wishlist_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WishlistHTTP) AddToWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.add_to_wishlist")

	uid, err := userID(c)
	if err != nil {
		l.Warn("add_to_wishlist_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddToWishlistRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_wishlist_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Add(ctx, uid, req.ProductID, req.Size)
	if err != nil {
		return fail(c, l, "add_to_wishlist_error", err)
	}

	l.Info("add_to_wishlist_success", "product_id", item.ProductID)
	return c.JSON(http.StatusCreated, item)
}

// RemoveFromWishlist drops the size given in ?size=, or every size of the product.
func (h *WishlistHTTP) RemoveFromWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.remove_from_wishlist")

	uid, err := userID(c)
	if err != nil {
		l.Warn("remove_from_wishlist_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	pid, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		l.Warn("remove_from_wishlist_error", "status", 400, "reason", "invalid product_id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	if err := h.Svc.Remove(ctx, uid, pid, c.QueryParam("size")); err != nil {
		return fail(c, l, "remove_from_wishlist_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *WishlistHTTP) ClearWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.clear_wishlist")

	uid, err := userID(c)
	if err != nil {
		l.Warn("clear_wishlist_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.Clear(ctx, uid); err != nil {
		return fail(c, l, "clear_wishlist_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *WishlistHTTP) CheckWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.check_wishlist")

	uid, err := userID(c)
	if err != nil {
		l.Warn("check_wishlist_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	pid, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		l.Warn("check_wishlist_error", "status", 400, "reason", "invalid product_id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	in, err := h.Svc.Check(ctx, uid, pid)
	if err != nil {
		return fail(c, l, "check_wishlist_error", err)
	}
	return c.JSON(http.StatusOK, transport.WishlistCheckResponse{ProductID: pid, InWishlist: in})
}
