package wishlist

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, product_id, size").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddToWishlist inserts the line unless it is already saved and reports
// whether a row was written.
func (r *GormRepo) AddToWishlist(ctx context.Context, item *models.WishlistItem) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveFromWishlist deletes one size of a product, or every size when size is empty.
func (r *GormRepo) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID, size string) (int64, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if size != "" {
		q = q.Where("size = ?", size)
	}
	res := q.Delete(&models.WishlistItem{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) ClearWishlist(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.WishlistItem{}).Error
}

func (r *GormRepo) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}
