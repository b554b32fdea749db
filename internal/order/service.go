package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/inventory"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartClearer interface {
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// SettlementListener is told, without blocking, that an order was paid.
type SettlementListener interface {
	Notify()
}

type ItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID  uuid.UUID
	Items   []ItemInput
	Address models.Address
	Method  models.PaymentMethod
	Origin  string
}

type PlaceOrderResult struct {
	Order  *models.Order  `json:"order"`
	Handle payment.Handle `json:"payment"`
}

type OrderService struct {
	DB          *gorm.DB
	Repo        *GormRepo
	Ledger      *inventory.Ledger
	Gateways    *payment.Registry
	Cart        CartClearer
	Events      events.Publisher
	Listener    SettlementListener
	DeliveryFee decimal.Decimal
	Now         func() time.Time
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, gateways *payment.Registry, cart CartClearer, pub events.Publisher, fee decimal.Decimal) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{
		DB:          db,
		Repo:        &GormRepo{DB: db},
		Ledger:      ledger,
		Gateways:    gateways,
		Cart:        cart,
		Events:      pub,
		DeliveryFee: fee,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}
	gw, err := s.Gateways.Get(in.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.Now()
	ord, lines, err := s.buildOrder(ctx, in, now)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.ReserveTx(ctx, tx, lines); err != nil {
			return err
		}
		if err := s.Repo.CreateTx(ctx, tx, ord); err != nil {
			return err
		}
		if in.Method == models.MethodCOD {
			_, err := s.settleTx(ctx, tx, ord, "")
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, inventory.ErrValidation) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	metrics.OrdersPlaced.WithLabelValues(string(in.Method)).Inc()
	s.publish(ctx, events.OrderPlaced, ord.ID, map[string]any{
		"user_id": ord.UserID,
		"amount":  ord.Amount,
		"method":  ord.PaymentMethod,
		"items":   ord.Items,
	})

	if in.Method == models.MethodCOD {
		ord.Payment = true
		s.afterSettle(ctx, ord)
	}

	handle, err := gw.CreateCharge(ctx, chargeFor(ord, in.Origin))
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(string(in.Method)).Inc()
		return &PlaceOrderResult{Order: ord}, &GatewayError{OrderID: ord.ID, Err: err}
	}
	if handle.Reference != "" {
		if err := s.Repo.SetGatewayRef(ctx, ord.ID, handle.Reference, now); err != nil {
			return &PlaceOrderResult{Order: ord}, err
		}
		ord.GatewayRef = handle.Reference
	}

	return &PlaceOrderResult{Order: ord, Handle: handle}, nil
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if it.Size == "" {
			return fmt.Errorf("%w: size required", ErrValidation)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
	}
	if !in.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.Method)
	}
	if in.Address.Empty() {
		return fmt.Errorf("%w: address required", ErrValidation)
	}
	if in.Method == models.MethodStripe && in.Origin == "" {
		return fmt.Errorf("%w: origin required for stripe checkout", ErrValidation)
	}
	return nil
}

// buildOrder prices every line at now and snapshots product display fields.
func (s *OrderService) buildOrder(ctx context.Context, in PlaceOrderInput, now time.Time) (*models.Order, []inventory.Line, error) {
	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.ProductsByID(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	lines := make([]inventory.Line, 0, len(in.Items))
	for _, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", inventory.ErrProductNotFound, it.ProductID)
		}
		if !p.Enabled {
			return nil, nil, fmt.Errorf("%w: product %s is not available", ErrValidation, p.ID)
		}

		price := promotion.EffectivePrice(p, now)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, models.OrderItem{
			ProductID:           p.ID,
			Name:                p.Name,
			Image:               p.FirstImage(),
			Size:                it.Size,
			Quantity:            it.Quantity,
			UnitPriceAtPurchase: price,
		})
		lines = append(lines, inventory.Line{ProductID: p.ID, Size: it.Size, Quantity: it.Quantity})
	}

	ord := &models.Order{
		UserID:           in.UserID,
		Items:            items,
		Amount:           subtotal.Add(s.DeliveryFee),
		DeliveryFee:      s.DeliveryFee,
		Address:          in.Address,
		PaymentMethod:    in.Method,
		Status:           StatusPlaced,
		StatusChangeDate: now,
		Date:             now,
		ChargedAt:        now,
	}
	return ord, lines, nil
}

func chargeFor(o *models.Order, origin string) payment.Charge {
	lines := make([]payment.ChargeLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, payment.ChargeLine{Name: it.Name, UnitPrice: it.UnitPriceAtPurchase, Quantity: it.Quantity})
	}
	return payment.Charge{
		OrderID:     o.ID,
		Amount:      o.Amount,
		DeliveryFee: o.DeliveryFee,
		Lines:       lines,
		Origin:      origin,
	}
}

// ConfirmPayment settles an order from a gateway callback. Repeated or late
// confirmations of a settled or unknown order succeed without side effects.
// A negative callback cancels the unsettled order.
func (s *OrderService) ConfirmPayment(ctx context.Context, proof payment.Proof) error {
	ord, err := s.Repo.Find(ctx, s.DB, proof.OrderID, true)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !proof.Success {
		if ord.DeletedAt.Valid {
			return nil
		}
		return s.cancel(ctx, ord.ID, "buyer_cancelled")
	}
	if ord.DeletedAt.Valid {
		return fmt.Errorf("%w: order %d was cancelled", ErrInvalidTransition, ord.ID)
	}
	if ord.Payment {
		return nil
	}

	if err := s.Gateways.Verify(ctx, ord.PaymentMethod, proof, ord.GatewayRef); err != nil {
		switch {
		case errors.Is(err, payment.ErrGateway):
			return &GatewayError{OrderID: ord.ID, Err: err}
		case errors.Is(err, payment.ErrValidation), errors.Is(err, payment.ErrUnsupported):
			return fmt.Errorf("%w: %v", ErrValidation, err)
		default:
			return err
		}
	}

	var won bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = s.settleTx(ctx, tx, ord, proof.PaymentID)
		return err
	})
	if err != nil {
		return err
	}

	if !won {
		latest, err := s.Repo.Find(ctx, s.DB, ord.ID, true)
		if err != nil {
			return err
		}
		if latest.DeletedAt.Valid {
			return fmt.Errorf("%w: order %d was cancelled", ErrInvalidTransition, ord.ID)
		}
		return nil
	}

	ord.Payment = true
	ord.PaymentRef = proof.PaymentID
	s.afterSettle(ctx, ord)
	return nil
}

// ConfirmPaymentForUser confirms only orders that belong to userID.
func (s *OrderService) ConfirmPaymentForUser(ctx context.Context, userID uuid.UUID, proof payment.Proof) error {
	ord, err := s.Repo.Find(ctx, s.DB, proof.OrderID, true)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if ord.UserID != userID {
		return ErrNotFound
	}
	return s.ConfirmPayment(ctx, proof)
}

// settleTx is the single place payment becomes true. Only the caller that
// flips the flag clears the cart.
func (s *OrderService) settleTx(ctx context.Context, tx *gorm.DB, ord *models.Order, paymentRef string) (bool, error) {
	won, err := s.Repo.MarkPaidTx(ctx, tx, ord.ID, paymentRef)
	if err != nil || !won {
		return false, err
	}
	if s.Cart != nil {
		if err := s.Cart.ClearTx(ctx, tx, ord.UserID); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *OrderService) afterSettle(ctx context.Context, ord *models.Order) {
	metrics.PaymentsSettled.WithLabelValues(string(ord.PaymentMethod)).Inc()
	s.publish(ctx, events.PaymentSettled, ord.ID, map[string]any{
		"user_id":    ord.UserID,
		"amount":     ord.Amount,
		"method":     ord.PaymentMethod,
		"payment_id": ord.PaymentRef,
	})
	if s.Listener != nil {
		s.Listener.Notify()
	}
}

func (s *OrderService) CancelUnsettledOrder(ctx context.Context, id uint) error {
	return s.cancel(ctx, id, "requested")
}

func (s *OrderService) CancelUnsettledOrderForUser(ctx context.Context, userID uuid.UUID, id uint) error {
	if _, err := s.GetOrderDetailForUser(ctx, userID, id); err != nil {
		return err
	}
	return s.cancel(ctx, id, "buyer_cancelled")
}

// cancel soft-deletes an unsettled order and restores its stock in the same
// transaction, so stock comes back exactly once.
func (s *OrderService) cancel(ctx context.Context, id uint, reason string) error {
	var ord *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// write first: the conditional delete takes the row before anything
		// is read, so concurrent cancels and settlements cannot both win.
		deleted, err := s.Repo.SoftDeleteUnsettledTx(ctx, tx, id)
		if err != nil {
			return err
		}
		ord, err = s.Repo.Find(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !deleted {
			switch {
			case ord.DeletedAt.Valid:
				return fmt.Errorf("%w: order %d is already cancelled", ErrNotFound, id)
			case ord.Payment:
				return fmt.Errorf("%w: order %d is already paid", ErrInvalidTransition, id)
			default:
				return fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, id)
			}
		}
		return s.Ledger.RestoreTx(ctx, tx, linesOf(ord))
	})
	if err != nil {
		return err
	}

	metrics.OrdersCancelled.WithLabelValues(reason).Inc()
	s.publish(ctx, events.OrderCancelled, id, map[string]any{
		"user_id": ord.UserID,
		"reason":  reason,
		"items":   ord.Items,
	})
	return nil
}

func linesOf(o *models.Order) []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity})
	}
	return lines
}

// UpdateStatus accepts the current status or any later one. asOf defaults to
// now when zero.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string, asOf time.Time) (*models.Order, error) {
	from := reachableFrom(status)
	if from == nil {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if asOf.IsZero() {
		asOf = s.Now()
	}

	ok, err := s.Repo.UpdateStatus(ctx, id, status, from, asOf.UTC())
	if err != nil {
		return nil, err
	}

	ord, err := s.Repo.Find(ctx, s.DB, id, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := CanTransition(ord.Status, status); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, id)
	}

	s.publish(ctx, events.OrderStatusChanged, id, map[string]any{"status": status, "at": asOf.UTC()})
	return ord, nil
}

func (s *OrderService) GetOrderDetail(ctx context.Context, id uint) (*models.Order, error) {
	return s.Repo.Find(ctx, s.DB, id, false)
}

// GetOrderDetailForUser hides orders of other users behind ErrNotFound.
func (s *OrderService) GetOrderDetailForUser(ctx context.Context, userID uuid.UUID, id uint) (*models.Order, error) {
	ord, err := s.Repo.Find(ctx, s.DB, id, false)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, ErrNotFound
	}
	return ord, nil
}

func (s *OrderService) ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListForUser(ctx, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListAll(ctx, offset, limit)
}

func (s *OrderService) SalesSince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error) {
	return s.Repo.SalesSince(ctx, since)
}

// RetryCharge opens a fresh gateway session for an unsettled order after a
// GatewayError.
func (s *OrderService) RetryCharge(ctx context.Context, userID uuid.UUID, id uint, origin string) (payment.Handle, error) {
	ord, err := s.GetOrderDetailForUser(ctx, userID, id)
	if err != nil {
		return payment.Handle{}, err
	}
	if ord.Payment {
		return payment.Handle{}, fmt.Errorf("%w: order %d is already paid", ErrInvalidTransition, id)
	}
	if ord.PaymentMethod == models.MethodCOD {
		return payment.Handle{}, fmt.Errorf("%w: cash on delivery orders have no charge", ErrInvalidTransition)
	}

	gw, err := s.Gateways.Get(ord.PaymentMethod)
	if err != nil {
		return payment.Handle{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if ord.PaymentMethod == models.MethodStripe && origin == "" {
		return payment.Handle{}, fmt.Errorf("%w: origin required for stripe checkout", ErrValidation)
	}
	handle, err := gw.CreateCharge(ctx, chargeFor(ord, origin))
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(string(ord.PaymentMethod)).Inc()
		return payment.Handle{}, &GatewayError{OrderID: id, Err: err}
	}
	if err := s.Repo.SetGatewayRef(ctx, id, handle.Reference, s.Now()); err != nil {
		return payment.Handle{}, err
	}
	return handle, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, orderID uint, payload any) {
	if err := s.Events.Publish(ctx, eventType, orderID, payload); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error",
			"component", "order", "event_type", eventType, "order_id", orderID, "error", err)
	}
}
