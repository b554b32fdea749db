package payment

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

// COD settles at placement; there is no gateway callback.
type COD struct{}

func (COD) Method() models.PaymentMethod { return models.MethodCOD }

func (COD) CreateCharge(ctx context.Context, c Charge) (Handle, error) {
	return Handle{Method: models.MethodCOD, Settled: true}, nil
}
