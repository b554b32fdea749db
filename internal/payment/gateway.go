package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation  = errors.New("validation")
	ErrGateway     = errors.New("gateway error")
	ErrUnsupported = errors.New("unsupported payment method")
)

type ChargeLine struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type Charge struct {
	OrderID     uint
	Amount      decimal.Decimal
	DeliveryFee decimal.Decimal
	Lines       []ChargeLine
	// Origin is the storefront base URL the buyer is sent back to.
	Origin string
}

// Handle is what the buyer needs to finish paying. Settled is true only for
// methods that need no further gateway step.
type Handle struct {
	Method      models.PaymentMethod `json:"method"`
	Settled     bool                 `json:"settled"`
	Reference   string               `json:"reference,omitempty"`
	RedirectURL string               `json:"redirect_url,omitempty"`
	AmountMinor int64                `json:"amount_minor,omitempty"`
	Currency    string               `json:"currency,omitempty"`
	KeyID       string               `json:"key_id,omitempty"`
}

// Proof is the buyer-side evidence submitted after the gateway redirect.
type Proof struct {
	OrderID        uint
	Success        bool
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type Gateway interface {
	Method() models.PaymentMethod
	CreateCharge(ctx context.Context, c Charge) (Handle, error)
}

// Verifier is implemented by gateways whose callbacks must be checked before
// an order is settled. reference is the gateway id stored on the order.
type Verifier interface {
	VerifyCallback(ctx context.Context, p Proof, reference string) error
}

type Registry struct {
	gateways map[models.PaymentMethod]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.PaymentMethod]Gateway, len(gws))}
	for _, g := range gws {
		if g != nil {
			r.gateways[g.Method()] = g
		}
	}
	return r
}

func (r *Registry) Get(m models.PaymentMethod) (Gateway, error) {
	g, ok := r.gateways[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, m)
	}
	return g, nil
}

// Verify runs the gateway's callback check when it has one.
func (r *Registry) Verify(ctx context.Context, m models.PaymentMethod, p Proof, reference string) error {
	g, err := r.Get(m)
	if err != nil {
		return err
	}
	v, ok := g.(Verifier)
	if !ok {
		return nil
	}
	return v.VerifyCallback(ctx, p, reference)
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
