package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/trending"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Svc *order.OrderService
}

func orderID(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return uint(n), nil
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	uid, err := userID(c)
	if err != nil {
		l.Warn("create_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemInput{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity})
	}

	res, err := h.Svc.PlaceOrder(ctx, order.PlaceOrderInput{
		UserID:  uid,
		Items:   items,
		Address: req.Address,
		Method:  req.PaymentMethod,
		Origin:  origin(c),
	})
	if err != nil {
		return fail(c, l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", res.Order.ID, "method", string(res.Order.PaymentMethod))
	return c.JSON(http.StatusCreated, res)
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	uid, err := userID(c)
	if err != nil {
		l.Warn("get_orders_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.ListOrdersForUser(ctx, uid)
	if err != nil {
		return fail(c, l, "get_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	uid, err := userID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := orderID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 400, "reason", "invalid order id", "error", err)
		return err
	}

	ord, err := h.Svc.GetOrderDetailForUser(ctx, uid, id)
	if err != nil {
		return fail(c, l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) RetryCharge(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.retry_charge")

	uid, err := userID(c)
	if err != nil {
		l.Warn("retry_charge_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := orderID(c)
	if err != nil {
		l.Warn("retry_charge_error", "status", 400, "reason", "invalid order id", "error", err)
		return err
	}

	handle, err := h.Svc.RetryCharge(ctx, uid, id, origin(c))
	if err != nil {
		return fail(c, l, "retry_charge_error", err)
	}
	return c.JSON(http.StatusOK, handle)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	uid, err := userID(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := orderID(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "invalid order id", "error", err)
		return err
	}

	if err := h.Svc.CancelUnsettledOrderForUser(ctx, uid, id); err != nil {
		return fail(c, l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHTTP) VerifyStripe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify_stripe")

	uid, err := userID(c)
	if err != nil {
		l.Warn("verify_stripe_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.StripeVerifyRequest
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		l.Warn("verify_stripe_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	err = h.Svc.ConfirmPaymentForUser(ctx, uid, payment.Proof{OrderID: req.OrderID, Success: req.Success})
	if err != nil {
		return fail(c, l, "verify_stripe_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"order_id": req.OrderID, "success": req.Success})
}

func (h *OrderHTTP) VerifyRazorpay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify_razorpay")

	uid, err := userID(c)
	if err != nil {
		l.Warn("verify_razorpay_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.RazorpayVerifyRequest
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		l.Warn("verify_razorpay_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	err = h.Svc.ConfirmPaymentForUser(ctx, uid, payment.Proof{
		OrderID:        req.OrderID,
		Success:        true,
		GatewayOrderID: req.RazorpayOrderID,
		PaymentID:      req.RazorpayPaymentID,
		Signature:      req.RazorpaySignature,
	})
	if err != nil {
		return fail(c, l, "verify_razorpay_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"order_id": req.OrderID, "success": true})
}

func (h *OrderHTTP) ListAllOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListAllOrders(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *OrderHTTP) AdminGetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_order")

	id, err := orderID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 400, "reason", "invalid order id", "error", err)
		return err
	}

	ord, err := h.Svc.GetOrderDetail(ctx, id)
	if err != nil {
		return fail(c, l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_status")

	id, err := orderID(c)
	if err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid order id", "error", err)
		return err
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var asOf time.Time
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	ord, err := h.Svc.UpdateStatus(ctx, id, req.Status, asOf)
	if err != nil {
		return fail(c, l, "update_status_error", err)
	}

	l.Info("update_status_success", "order_id", id, "status", req.Status)
	return c.JSON(http.StatusOK, ord)
}

// SalesData reports paid units per product over the trending window.
func (h *OrderHTTP) SalesData(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.sales_data")

	sales, err := h.Svc.SalesSince(ctx, h.Svc.Now().Add(-trending.SalesWindow))
	if err != nil {
		return fail(c, l, "sales_data_error", err)
	}

	out := make([]transport.SalesEntry, 0, len(sales))
	for id, units := range sales {
		out = append(out, transport.SalesEntry{ProductID: id, Units: units})
	}
	return c.JSON(http.StatusOK, out)
}
