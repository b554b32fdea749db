package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrValidation = errors.New("validation")

type CartService struct {
	Repo *GormRepo
}

func NewService(db *gorm.DB) *CartService {
	return &CartService{Repo: &GormRepo{DB: db}}
}

func (s *CartService) Get(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, size string, qty int) (*models.CartItem, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if size == "" {
		return nil, fmt.Errorf("%w: size required", ErrValidation)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, Size: size, Quantity: qty}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.Repo.ClearTx(ctx, s.Repo.DB, userID)
}

// ClearTx empties the cart as part of a caller-owned transaction.
func (s *CartService) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return s.Repo.ClearTx(ctx, tx, userID)
}
