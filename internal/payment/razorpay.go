package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayOrders is the slice of the Razorpay orders API used here.
type RazorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	Orders    RazorpayOrders
	KeyID     string
	KeySecret string
	Currency  string
}

func NewRazorpay(keyID, keySecret, currency string) *Razorpay {
	c := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		Orders:    c.Order,
		KeyID:     keyID,
		KeySecret: keySecret,
		Currency:  strings.ToUpper(currency),
	}
}

func (r *Razorpay) Method() models.PaymentMethod { return models.MethodRazorpay }

func (r *Razorpay) CreateCharge(ctx context.Context, c Charge) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	amount := minorUnits(c.Amount)
	resp, err := r.Orders.Create(map[string]interface{}{
		"amount":   amount,
		"currency": r.Currency,
		"receipt":  strconv.FormatUint(uint64(c.OrderID), 10),
	}, nil)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: razorpay order: %v", ErrGateway, err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return Handle{}, fmt.Errorf("%w: razorpay order: response without id", ErrGateway)
	}

	return Handle{
		Method:      models.MethodRazorpay,
		Reference:   id,
		AmountMinor: amount,
		Currency:    r.Currency,
		KeyID:       r.KeyID,
	}, nil
}

// VerifyCallback checks the checkout signature: hex(HMAC-SHA256(order_id +
// "|" + payment_id, key_secret)). The gateway order must be the one created
// for this order.
func (r *Razorpay) VerifyCallback(ctx context.Context, p Proof, reference string) error {
	if p.GatewayOrderID == "" || p.PaymentID == "" || p.Signature == "" {
		return fmt.Errorf("%w: razorpay proof incomplete", ErrValidation)
	}
	if reference == "" || p.GatewayOrderID != reference {
		return fmt.Errorf("%w: razorpay order mismatch", ErrValidation)
	}

	got, err := hex.DecodeString(p.Signature)
	if err != nil {
		return fmt.Errorf("%w: razorpay signature malformed", ErrValidation)
	}
	if !hmac.Equal(got, Sign(r.KeySecret, p.GatewayOrderID, p.PaymentID)) {
		return fmt.Errorf("%w: razorpay signature invalid", ErrValidation)
	}
	return nil
}

func Sign(secret, gatewayOrderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return mac.Sum(nil)
}
