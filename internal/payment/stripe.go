package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeSessions is the slice of the Stripe checkout session API used here.
type StripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Stripe struct {
	Sessions StripeSessions
	Currency string
}

func NewStripe(secretKey, currency string) *Stripe {
	sc := client.New(secretKey, nil)
	return &Stripe{Sessions: sc.CheckoutSessions, Currency: strings.ToLower(currency)}
}

func (s *Stripe) Method() models.PaymentMethod { return models.MethodStripe }

func (s *Stripe) CreateCharge(ctx context.Context, c Charge) (Handle, error) {
	if c.Origin == "" {
		return Handle{}, fmt.Errorf("%w: origin required for stripe checkout", ErrValidation)
	}
	origin := strings.TrimRight(c.Origin, "/")
	orderID := strconv.FormatUint(uint64(c.OrderID), 10)

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(c.Lines)+1)
	for _, ln := range c.Lines {
		items = append(items, s.lineItem(ln.Name, minorUnits(ln.UnitPrice), int64(ln.Quantity)))
	}
	if c.DeliveryFee.IsPositive() {
		items = append(items, s.lineItem("Delivery Charges", minorUnits(c.DeliveryFee), 1))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(origin + "/verify?success=true&orderId=" + orderID),
		CancelURL:         stripe.String(origin + "/verify?success=false&orderId=" + orderID),
		ClientReferenceID: stripe.String(orderID),
		LineItems:         items,
	}
	params.Context = ctx

	sess, err := s.Sessions.New(params)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: stripe checkout session: %v", ErrGateway, err)
	}

	return Handle{
		Method:      models.MethodStripe,
		Reference:   sess.ID,
		RedirectURL: sess.URL,
		AmountMinor: minorUnits(c.Amount),
		Currency:    s.Currency,
	}, nil
}

// VerifyCallback confirms with Stripe that the session stored on the order
// belongs to it and has been paid.
func (s *Stripe) VerifyCallback(ctx context.Context, p Proof, reference string) error {
	if reference == "" {
		return fmt.Errorf("%w: order has no stripe session", ErrValidation)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.Sessions.Get(reference, params)
	if err != nil {
		return fmt.Errorf("%w: stripe session lookup: %v", ErrGateway, err)
	}
	if sess.ClientReferenceID != strconv.FormatUint(uint64(p.OrderID), 10) {
		return fmt.Errorf("%w: stripe session belongs to another order", ErrValidation)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return fmt.Errorf("%w: stripe session not paid", ErrValidation)
	}
	return nil
}

func (s *Stripe) lineItem(name string, unitAmount, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(s.Currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(qty),
	}
}
