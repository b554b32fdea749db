package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/inventory"
	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/wishlist"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errUnauthorized = errors.New("unauthorized")

func userID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(middleware.ContextUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, errUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errUnauthorized
	}
	return id, nil
}

// origin is where gateway redirects send the buyer back to.
func origin(c echo.Context) string {
	if o := c.Request().Header.Get(echo.HeaderOrigin); o != "" {
		return o
	}
	return c.Scheme() + "://" + c.Request().Host
}

func isValidation(err error) bool {
	return errors.Is(err, order.ErrValidation) ||
		errors.Is(err, catalog.ErrValidation) ||
		errors.Is(err, cart.ErrValidation) ||
		errors.Is(err, wishlist.ErrValidation) ||
		errors.Is(err, inventory.ErrValidation)
}

func isNotFound(err error) bool {
	return errors.Is(err, order.ErrNotFound) ||
		errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, wishlist.ErrNotFound) ||
		errors.Is(err, inventory.ErrProductNotFound) ||
		errors.Is(err, inventory.ErrSizeNotFound)
}

// fail maps a service error onto the response and logs it under event.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	var short *inventory.InsufficientStockError
	var gw *order.GatewayError

	switch {
	case errors.As(err, &short):
		l.Warn(event, "status", 409, "reason", "insufficient stock", "error", err)
		return c.JSON(http.StatusConflict, transport.ShortfallResponse{
			Message:   "insufficient stock",
			ProductID: short.ProductID,
			Size:      short.Size,
			Available: short.Available,
			Requested: short.Requested,
		})
	case errors.As(err, &gw):
		l.Error(event, "status", 502, "reason", "payment gateway failed", "error", err)
		return c.JSON(http.StatusBadGateway, transport.GatewayErrorResponse{
			Message: "payment gateway error",
			OrderID: gw.OrderID,
		})
	case isValidation(err):
		l.Warn(event, "status", 400, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case isNotFound(err):
		l.Warn(event, "status", 404, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, wishlist.ErrAlreadyListed):
		l.Warn(event, "status", 409, "reason", "already in wishlist", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		l.Warn(event, "status", 409, "reason", "invalid transition", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
