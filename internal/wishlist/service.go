package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation    = errors.New("validation")     // 400
	ErrNotFound      = errors.New("not found")      // 404
	ErrAlreadyListed = errors.New("already listed") // 409
)

type WishlistService struct {
	Repo *GormRepo
}

func NewService(db *gorm.DB) *WishlistService {
	return &WishlistService{Repo: &GormRepo{DB: db}}
}

func (s *WishlistService) Get(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	return s.Repo.GetWishlist(ctx, userID)
}

func (s *WishlistService) Add(ctx context.Context, userID, productID uuid.UUID, size string) (*models.WishlistItem, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if size == "" {
		return nil, fmt.Errorf("%w: size required", ErrValidation)
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID, Size: size}
	created, err := s.Repo.AddToWishlist(ctx, item)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: product %s size %s", ErrAlreadyListed, productID, size)
	}
	return item, nil
}

// Remove drops one size of a product, or the whole product when size is empty.
func (s *WishlistService) Remove(ctx context.Context, userID, productID uuid.UUID, size string) error {
	n, err := s.Repo.RemoveFromWishlist(ctx, userID, productID, size)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: product %s not in wishlist", ErrNotFound, productID)
	}
	return nil
}

func (s *WishlistService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.Repo.ClearWishlist(ctx, userID)
}

// Check reports whether any size of the product is saved.
func (s *WishlistService) Check(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.Repo.Contains(ctx, userID, productID)
}
