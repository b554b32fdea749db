package order

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	var products []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// Find loads an order with its items. Cancelled orders are included only when
// withDeleted is set.
func (r *GormRepo) Find(ctx context.Context, db *gorm.DB, id uint, withDeleted bool) (*models.Order, error) {
	q := db.WithContext(ctx).Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") })
	if withDeleted {
		q = q.Unscoped()
	}

	var o models.Order
	if err := q.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListAll(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Order("date DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// MarkPaidTx flips payment to true only if it is still false and the order is
// live. It reports whether this call made the change.
func (r *GormRepo) MarkPaidTx(ctx context.Context, tx *gorm.DB, id uint, paymentRef string) (bool, error) {
	updates := map[string]any{"payment": true}
	if paymentRef != "" {
		updates["payment_ref"] = paymentRef
	}
	res := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SoftDeleteUnsettledTx marks an unsettled order as cancelled and reports
// whether this call did it.
func (r *GormRepo) SoftDeleteUnsettledTx(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := tx.WithContext(ctx).
		Where("id = ? AND payment = ?", id, false).
		Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus moves the order to status only while its current status is
// one of from, in a single statement.
func (r *GormRepo) UpdateStatus(ctx context.Context, id uint, status string, from []string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": status, "status_change_date": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetGatewayRef records the gateway session of the latest charge attempt and
// when it was opened.
func (r *GormRepo) SetGatewayRef(ctx context.Context, id uint, ref string, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"gateway_ref": ref, "charged_at": at.UTC()}).Error
}

type productSales struct {
	ProductID uuid.UUID
	Units     int
}

// SalesSince sums units per product over settled, non-cancelled orders placed
// at or after since.
func (r *GormRepo) SalesSince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error) {
	var rows []productSales
	err := r.DB.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id AS product_id, SUM(order_items.quantity) AS units").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.payment = ? AND orders.deleted_at IS NULL AND orders.date >= ?", true, since.UTC()).
		Group("order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Units
	}
	return out, nil
}

// Abandoned returns unsettled gateway orders whose latest charge attempt was
// opened before cutoff.
func (r *GormRepo) Abandoned(ctx context.Context, cutoff time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment = ? AND payment_method <> ? AND charged_at < ?", false, models.MethodCOD, cutoff.UTC()).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
