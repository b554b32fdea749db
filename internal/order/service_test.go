package order

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/inventory"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/Skotchmaster/storefront/internal/testenv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	method    models.PaymentMethod
	err       error
	verifyErr error
	calls     int
}

func (f *fakeGateway) Method() models.PaymentMethod { return f.method }

func (f *fakeGateway) CreateCharge(_ context.Context, c payment.Charge) (payment.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return payment.Handle{}, f.err
	}
	return payment.Handle{Method: f.method, Reference: "sess_" + uuid.NewString()}, nil
}

func (f *fakeGateway) VerifyCallback(context.Context, payment.Proof, string) error {
	return f.verifyErr
}

type fakeRazorpayOrders struct{}

func (fakeRazorpayOrders) Create(map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"id": "order_rzp_1"}, nil
}

type countingListener struct {
	mu sync.Mutex
	n  int
}

func (c *countingListener) Notify() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

type env struct {
	db       *gorm.DB
	svc      *OrderService
	cart     *cart.CartService
	events   *events.Memory
	stripe   *fakeGateway
	listener *countingListener
	now      time.Time
}

func newEnv(t *testing.T, fee string) *env {
	t.Helper()
	return newEnvOn(t, testenv.NewDB(t), fee)
}

func newEnvOn(t *testing.T, db *gorm.DB, fee string) *env {
	t.Helper()

	e := &env{
		db:       db,
		cart:     cart.NewService(db),
		events:   &events.Memory{},
		stripe:   &fakeGateway{method: models.MethodStripe},
		listener: &countingListener{},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	razorpay := &payment.Razorpay{Orders: fakeRazorpayOrders{}, KeyID: "rzp_key", KeySecret: "rzp_secret", Currency: "INR"}
	gws := payment.NewRegistry(payment.COD{}, e.stripe, razorpay)

	e.svc = NewService(db, inventory.NewLedger(db), gws, e.cart, e.events, decimal.RequireFromString(fee))
	e.svc.Listener = e.listener
	e.svc.Now = func() time.Time { return e.now }
	return e
}

var addr = models.Address{FirstName: "Ada", Street: "1 Main St", City: "Pune", Country: "IN"}

func (e *env) place(t *testing.T, user uuid.UUID, method models.PaymentMethod, items ...ItemInput) (*PlaceOrderResult, error) {
	t.Helper()
	return e.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:  user,
		Items:   items,
		Address: addr,
		Method:  method,
		Origin:  "https://shop.test",
	})
}

func TestPlaceOrder_COD(t *testing.T) {
	e := newEnv(t, "10")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 5})
	user := uuid.New()
	_, err := e.cart.Add(context.Background(), user, shirt.ID, "M", 2)
	require.NoError(t, err)

	res, err := e.place(t, user, models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)

	assert.True(t, res.Handle.Settled)
	assert.True(t, decimal.NewFromInt(50).Equal(res.Order.Amount), "amount %s", res.Order.Amount)
	assert.Equal(t, 3, testenv.StockOf(t, e.db, shirt.ID, "M"))

	stored, err := e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Payment)
	assert.Equal(t, StatusPlaced, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Shirt", stored.Items[0].Name)
	assert.Equal(t, "Shirt.png", stored.Items[0].Image)
	assert.True(t, decimal.NewFromInt(20).Equal(stored.Items[0].UnitPriceAtPurchase))
	assert.Equal(t, addr, stored.Address)

	items, err := e.cart.Get(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, 1, e.events.Count(events.OrderPlaced, res.Order.ID))
	assert.Equal(t, 1, e.events.Count(events.PaymentSettled, res.Order.ID))
	assert.Equal(t, 1, e.listener.n)
}

func TestPlaceOrder_Validation(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 5})
	ok := ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1}

	tests := []struct {
		name string
		in   PlaceOrderInput
	}{
		{"no user", PlaceOrderInput{Items: []ItemInput{ok}, Address: addr, Method: models.MethodCOD}},
		{"no items", PlaceOrderInput{UserID: uuid.New(), Address: addr, Method: models.MethodCOD}},
		{"zero quantity", PlaceOrderInput{UserID: uuid.New(), Items: []ItemInput{{ProductID: shirt.ID, Size: "M"}}, Address: addr, Method: models.MethodCOD}},
		{"no size", PlaceOrderInput{UserID: uuid.New(), Items: []ItemInput{{ProductID: shirt.ID, Quantity: 1}}, Address: addr, Method: models.MethodCOD}},
		{"unknown method", PlaceOrderInput{UserID: uuid.New(), Items: []ItemInput{ok}, Address: addr, Method: "Cheque"}},
		{"no address", PlaceOrderInput{UserID: uuid.New(), Items: []ItemInput{ok}, Method: models.MethodCOD}},
		{"stripe without origin", PlaceOrderInput{UserID: uuid.New(), Items: []ItemInput{ok}, Address: addr, Method: models.MethodStripe}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.PlaceOrder(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Equal(t, 5, testenv.StockOf(t, e.db, shirt.ID, "M"))
}

func TestPlaceOrder_UnknownProductCreatesNothing(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 5})

	_, err := e.place(t, uuid.New(), models.MethodCOD,
		ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1},
		ItemInput{ProductID: uuid.New(), Size: "M", Quantity: 1},
	)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)

	_, err = e.place(t, uuid.New(), models.MethodCOD,
		ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1},
		ItemInput{ProductID: shirt.ID, Size: "XXL", Quantity: 1},
	)
	assert.ErrorIs(t, err, inventory.ErrSizeNotFound)

	var n int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 5, testenv.StockOf(t, e.db, shirt.ID, "M"))
}

func TestPlaceOrder_DisabledProduct(t *testing.T) {
	e := newEnv(t, "0")
	hidden := testenv.SeedProduct(t, e.db, "Hidden", "20", map[string]int{"M": 5}, testenv.Disabled())

	_, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: hidden.ID, Size: "M", Quantity: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func placeConcurrently(t *testing.T, e *env, productID uuid.UUID, n int) (successes []*PlaceOrderResult, failures []error) {
	t.Helper()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: productID, Size: "M", Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes = append(successes, res)
		}()
	}
	wg.Wait()
	return successes, failures
}

func TestScenario_TwoBuyersEnoughStock(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 2})

	ok, failed := placeConcurrently(t, e, shirt.ID, 2)
	require.Empty(t, failed)
	require.Len(t, ok, 2)
	for _, res := range ok {
		assert.True(t, decimal.NewFromInt(20).Equal(res.Order.Amount))
	}
	assert.Equal(t, 0, testenv.StockOf(t, e.db, shirt.ID, "M"))
}

func TestScenario_TwoBuyersLastUnit(t *testing.T) {
	for name, db := range testenv.ConcurrentDBs(t) {
		db := db
		t.Run(name, func(t *testing.T) {
			e := newEnvOn(t, db, "0")
			shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 1})

			ok, failed := placeConcurrently(t, e, shirt.ID, 2)
			require.Len(t, ok, 1)
			require.Len(t, failed, 1)
			assert.True(t, decimal.NewFromInt(20).Equal(ok[0].Order.Amount))

			var short *inventory.InsufficientStockError
			require.ErrorAs(t, failed[0], &short)
			assert.Equal(t, 0, short.Available)
			assert.Equal(t, 1, short.Requested)
			assert.Equal(t, 0, testenv.StockOf(t, e.db, shirt.ID, "M"))
		})
	}
}

func TestScenario_PromotionPriceThenExpiry(t *testing.T) {
	e := newEnv(t, "0")
	yesterday := e.now.Add(-24 * time.Hour)
	tomorrow := e.now.Add(24 * time.Hour)
	p := testenv.SeedProduct(t, e.db, "Jacket", "100", map[string]int{"L": 5}, testenv.WithPromotion("80", &yesterday, &tomorrow))

	res, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: p.ID, Size: "L", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(res.Order.Items[0].UnitPriceAtPurchase))

	e.now = tomorrow.Add(time.Hour)
	n, err := promotion.NewSweeper(e.db, time.Hour).SweepExpired(context.Background(), e.now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err = e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: p.ID, Size: "L", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Order.Items[0].UnitPriceAtPurchase))

	first, err := e.svc.GetOrderDetail(context.Background(), res.Order.ID-1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(first.Items[0].UnitPriceAtPurchase))
}

func TestPlaceOrder_GatewayFailureKeepsReservation(t *testing.T) {
	e := newEnv(t, "0")
	e.stripe.err = errors.New("stripe unavailable")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})
	user := uuid.New()

	_, err := e.place(t, user, models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, ErrGateway)
	assert.NotZero(t, gwErr.OrderID)
	assert.Equal(t, 2, testenv.StockOf(t, e.db, shirt.ID, "M"))

	stored, err := e.svc.GetOrderDetail(context.Background(), gwErr.OrderID)
	require.NoError(t, err)
	assert.False(t, stored.Payment)

	e.stripe.err = nil
	handle, err := e.svc.RetryCharge(context.Background(), user, gwErr.OrderID, "https://shop.test")
	require.NoError(t, err)
	assert.NotEmpty(t, handle.Reference)

	stored, err = e.svc.GetOrderDetail(context.Background(), gwErr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, handle.Reference, stored.GatewayRef)

	_, err = e.svc.RetryCharge(context.Background(), uuid.New(), gwErr.OrderID, "https://shop.test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})
	user := uuid.New()

	res, err := e.place(t, user, models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.False(t, res.Handle.Settled)
	_, err = e.cart.Add(context.Background(), user, shirt.ID, "M", 2)
	require.NoError(t, err)

	proof := payment.Proof{OrderID: res.Order.ID, Success: true}
	require.NoError(t, e.svc.ConfirmPayment(context.Background(), proof))

	items, err := e.cart.Get(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = e.cart.Add(context.Background(), user, shirt.ID, "M", 1)
	require.NoError(t, err)
	require.NoError(t, e.svc.ConfirmPayment(context.Background(), proof))

	stored, err := e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Payment)
	assert.Equal(t, 1, testenv.StockOf(t, e.db, shirt.ID, "M"))
	assert.Equal(t, 1, e.events.Count(events.PaymentSettled, res.Order.ID))

	items, err = e.cart.Get(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, items, 1, "second confirmation must not clear the cart again")
}

func TestConfirmPayment_ConcurrentSingleWinner(t *testing.T) {
	for name, db := range testenv.ConcurrentDBs(t) {
		db := db
		t.Run(name, func(t *testing.T) {
			e := newEnvOn(t, db, "0")
			shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})

			res, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
			require.NoError(t, err)

			start := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					assert.NoError(t, e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: res.Order.ID, Success: true}))
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, e.events.Count(events.PaymentSettled, res.Order.ID))
			assert.Equal(t, 1, e.listener.n)
		})
	}
}

func TestConfirmPayment_UnknownOrderIsNoop(t *testing.T) {
	e := newEnv(t, "0")
	assert.NoError(t, e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: 999, Success: true}))
	assert.Empty(t, e.events.Events())
}

func TestConfirmPayment_VerificationFailure(t *testing.T) {
	e := newEnv(t, "0")
	e.stripe.verifyErr = payment.ErrValidation
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})

	res, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)

	err = e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: res.Order.ID, Success: true})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.False(t, stored.Payment)
}

func TestConfirmPayment_BuyerCancelled(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})

	res, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, testenv.StockOf(t, e.db, shirt.ID, "M"))

	require.NoError(t, e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: res.Order.ID, Success: false}))
	assert.Equal(t, 3, testenv.StockOf(t, e.db, shirt.ID, "M"))

	require.NoError(t, e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: res.Order.ID, Success: false}))
	assert.Equal(t, 3, testenv.StockOf(t, e.db, shirt.ID, "M"))

	err = e.svc.ConfirmPayment(context.Background(), payment.Proof{OrderID: res.Order.ID, Success: true})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, e.events.Count(events.OrderCancelled, res.Order.ID))
}

func TestConfirmPayment_Razorpay(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})

	res, err := e.place(t, uuid.New(), models.MethodRazorpay, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "order_rzp_1", res.Handle.Reference)

	forged := payment.Proof{OrderID: res.Order.ID, Success: true, GatewayOrderID: "order_rzp_1", PaymentID: "pay_1", Signature: hex.EncodeToString([]byte("forged"))}
	assert.ErrorIs(t, e.svc.ConfirmPayment(context.Background(), forged), ErrValidation)

	stored, err := e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.False(t, stored.Payment)

	valid := forged
	valid.Signature = hex.EncodeToString(payment.Sign("rzp_secret", "order_rzp_1", "pay_1"))
	require.NoError(t, e.svc.ConfirmPayment(context.Background(), valid))

	stored, err = e.svc.GetOrderDetail(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Payment)
	assert.Equal(t, "pay_1", stored.PaymentRef)
}

func TestConfirmPaymentForUser_Ownership(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})
	owner := uuid.New()

	res, err := e.place(t, owner, models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)

	err = e.svc.ConfirmPaymentForUser(context.Background(), uuid.New(), payment.Proof{OrderID: res.Order.ID, Success: false})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, testenv.StockOf(t, e.db, shirt.ID, "M"))

	require.NoError(t, e.svc.ConfirmPaymentForUser(context.Background(), owner, payment.Proof{OrderID: res.Order.ID, Success: true}))
}

func TestCancelUnsettledOrder(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})
	ctx := context.Background()

	unsettled, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	settled, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, testenv.StockOf(t, e.db, shirt.ID, "M"))

	require.NoError(t, e.svc.CancelUnsettledOrder(ctx, unsettled.Order.ID))
	assert.Equal(t, 2, testenv.StockOf(t, e.db, shirt.ID, "M"))

	assert.ErrorIs(t, e.svc.CancelUnsettledOrder(ctx, unsettled.Order.ID), ErrNotFound)
	assert.Equal(t, 2, testenv.StockOf(t, e.db, shirt.ID, "M"))

	assert.ErrorIs(t, e.svc.CancelUnsettledOrder(ctx, settled.Order.ID), ErrInvalidTransition)
	assert.ErrorIs(t, e.svc.CancelUnsettledOrder(ctx, 12345), ErrNotFound)

	next, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	assert.Greater(t, next.Order.ID, unsettled.Order.ID)
	assert.Greater(t, next.Order.ID, settled.Order.ID)
}

func TestUpdateStatus(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})
	ctx := context.Background()

	res, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	id := res.Order.ID

	_, err = e.svc.UpdateStatus(ctx, id, StatusPacking, time.Time{})
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, id, StatusPlaced, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	asOf := e.now.Add(time.Hour)
	ord, err := e.svc.UpdateStatus(ctx, id, StatusShipped, asOf)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, ord.Status)
	assert.True(t, asOf.Equal(ord.StatusChangeDate))
	assert.True(t, ord.Payment)

	ord, err = e.svc.UpdateStatus(ctx, id, StatusDelivered, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, ord.Status)

	_, err = e.svc.UpdateStatus(ctx, id, "Lost", time.Time{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.UpdateStatus(ctx, 9999, StatusShipped, time.Time{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 3, e.events.Count(events.OrderStatusChanged, id))
}

func TestUpdateStatus_DoesNotSettle(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 3})

	res, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)

	ord, err := e.svc.UpdateStatus(context.Background(), res.Order.ID, StatusDelivered, time.Time{})
	require.NoError(t, err)
	assert.False(t, ord.Payment)
}

func TestQueries(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 10})
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	first, err := e.place(t, alice, models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	e.now = e.now.Add(time.Minute)
	second, err := e.place(t, alice, models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	e.now = e.now.Add(time.Minute)
	_, err = e.place(t, bob, models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)

	mine, err := e.svc.ListOrdersForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.Order.ID, mine[0].ID)
	assert.Equal(t, first.Order.ID, mine[1].ID)

	total, all, err := e.svc.ListAllOrders(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 2)
	assert.Equal(t, second.Order.ID, all[1].ID)

	_, err = e.svc.GetOrderDetailForUser(ctx, bob, first.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := e.svc.GetOrderDetailForUser(ctx, alice, first.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Order.ID, got.ID)
}

func TestSalesSince(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 50})
	hat := testenv.SeedProduct(t, e.db, "Hat", "10", map[string]int{"S": 50})
	ctx := context.Background()

	e.now = e.now.Add(-10 * 24 * time.Hour)
	_, err := e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 7})
	require.NoError(t, err)
	e.now = e.now.Add(10 * 24 * time.Hour)

	_, err = e.place(t, uuid.New(), models.MethodCOD,
		ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2},
		ItemInput{ProductID: hat.ID, Size: "S", Quantity: 1},
	)
	require.NoError(t, err)
	_, err = e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 5})
	require.NoError(t, err)
	cancelled, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: hat.ID, Size: "S", Quantity: 4})
	require.NoError(t, err)
	require.NoError(t, e.svc.ConfirmPayment(ctx, payment.Proof{OrderID: cancelled.Order.ID, Success: false}))

	sales, err := e.svc.SalesSince(ctx, e.now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{shirt.ID: 2, hat.ID: 1}, sales)
}

func TestReconciler(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 10})
	ctx := context.Background()

	start := e.now
	stale, err := e.place(t, uuid.New(), models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 3})
	require.NoError(t, err)
	_, err = e.place(t, uuid.New(), models.MethodCOD, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	e.now = start.Add(40 * time.Minute)
	fresh, err := e.place(t, uuid.New(), models.MethodRazorpay, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, testenv.StockOf(t, e.db, shirt.ID, "M"))

	r := NewReconciler(e.svc, time.Minute, 30*time.Minute)
	n, err := r.ReconcileOnce(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 7, testenv.StockOf(t, e.db, shirt.ID, "M"))

	_, err = e.svc.GetOrderDetail(ctx, stale.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.GetOrderDetail(ctx, fresh.Order.ID)
	assert.NoError(t, err)

	n, err = r.ReconcileOnce(ctx, e.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconciler_RetryRestartsTimeout(t *testing.T) {
	e := newEnv(t, "0")
	shirt := testenv.SeedProduct(t, e.db, "Shirt", "20", map[string]int{"M": 5})
	ctx := context.Background()
	user := uuid.New()

	res, err := e.place(t, user, models.MethodStripe, ItemInput{ProductID: shirt.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	placedAt := e.now

	e.now = placedAt.Add(29 * time.Minute)
	_, err = e.svc.RetryCharge(ctx, user, res.Order.ID, "https://shop.test")
	require.NoError(t, err)

	stored, err := e.svc.GetOrderDetail(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, placedAt.Equal(stored.Date))
	assert.True(t, e.now.Equal(stored.ChargedAt))

	r := NewReconciler(e.svc, time.Minute, 30*time.Minute)
	e.now = placedAt.Add(31 * time.Minute)
	n, err := r.ReconcileOnce(ctx, e.now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, testenv.StockOf(t, e.db, shirt.ID, "M"))

	e.now = placedAt.Add(60 * time.Minute)
	n, err = r.ReconcileOnce(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, testenv.StockOf(t, e.db, shirt.ID, "M"))
}
