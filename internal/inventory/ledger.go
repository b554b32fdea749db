package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Line struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int
}

// Ledger owns the stock column of product_sizes. Every decrement is a single
// conditional UPDATE so two buyers racing for the last unit cannot both win.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

func (l *Ledger) Reserve(ctx context.Context, lines []Line) error {
	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.ReserveTx(ctx, tx, lines)
	})
}

// ReserveTx decrements every line inside tx. The caller must roll tx back when
// an error is returned; nothing is undone here.
func (l *Ledger) ReserveTx(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := merge(lines)
	if err != nil {
		metrics.Reservations.WithLabelValues("invalid").Inc()
		return err
	}

	for _, ln := range merged {
		res := tx.WithContext(ctx).
			Model(&models.ProductSize{}).
			Where("product_id = ? AND size = ? AND stock >= ?", ln.ProductID, ln.Size, ln.Quantity).
			Update("stock", gorm.Expr("stock - ?", ln.Quantity))
		if res.Error != nil {
			metrics.Reservations.WithLabelValues("error").Inc()
			return res.Error
		}
		if res.RowsAffected == 0 {
			err := classify(ctx, tx, ln)
			metrics.Reservations.WithLabelValues(outcome(err)).Inc()
			return err
		}
	}

	metrics.Reservations.WithLabelValues("ok").Inc()
	return nil
}

func (l *Ledger) Restore(ctx context.Context, lines []Line) error {
	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.RestoreTx(ctx, tx, lines)
	})
}

// RestoreTx adds quantities back. A product or size that disappeared since the
// reservation is logged and skipped; only storage failures are returned.
func (l *Ledger) RestoreTx(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := merge(lines)
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx).With("component", "inventory")
	for _, ln := range merged {
		res := tx.WithContext(ctx).
			Model(&models.ProductSize{}).
			Where("product_id = ? AND size = ?", ln.ProductID, ln.Size).
			Update("stock", gorm.Expr("stock + ?", ln.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			metrics.InventoryInconsistencies.Inc()
			log.Warn("inventory_inconsistency",
				"reason", "restore target missing",
				"product_id", ln.ProductID.String(),
				"size", ln.Size,
				"quantity", ln.Quantity,
			)
		}
	}
	return nil
}

// SetStock overwrites the stock of one size, creating the size when absent.
func (l *Ledger) SetStock(ctx context.Context, productID uuid.UUID, size string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	if size == "" {
		return fmt.Errorf("%w: size required", ErrValidation)
	}

	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := productExists(tx, productID); err != nil {
			return err
		}

		res := tx.Model(&models.ProductSize{}).
			Where("product_id = ? AND size = ?", productID, size).
			Update("stock", qty)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&models.ProductSize{ProductID: productID, Size: size, Stock: qty}).Error
	})
}

func (l *Ledger) Stock(ctx context.Context, productID uuid.UUID) (map[string]int, error) {
	db := l.DB.WithContext(ctx)
	if err := productExists(db, productID); err != nil {
		return nil, err
	}

	var rows []models.ProductSize
	if err := db.Where("product_id = ?", productID).Order("size ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Size] = r.Stock
	}
	return out, nil
}

func classify(ctx context.Context, tx *gorm.DB, ln Line) error {
	db := tx.WithContext(ctx)
	if err := productExists(db, ln.ProductID); err != nil {
		return err
	}

	var row models.ProductSize
	err := db.Where("product_id = ? AND size = ?", ln.ProductID, ln.Size).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: product %s has no size %q", ErrSizeNotFound, ln.ProductID, ln.Size)
	}
	if err != nil {
		return err
	}

	return &InsufficientStockError{
		ProductID: ln.ProductID,
		Size:      ln.Size,
		Available: row.Stock,
		Requested: ln.Quantity,
	}
}

func productExists(db *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := db.Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

// merge folds repeated (product, size) pairs and orders the result so
// concurrent multi-line reservations lock rows in the same sequence.
func merge(lines []Line) ([]Line, error) {
	type key struct {
		id   uuid.UUID
		size string
	}

	idx := make(map[key]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		if ln.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if ln.Size == "" {
			return nil, fmt.Errorf("%w: size required", ErrValidation)
		}
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}

		k := key{ln.ProductID, ln.Size}
		if i, ok := idx[k]; ok {
			out[i].Quantity += ln.Quantity
			continue
		}
		idx[k] = len(out)
		out = append(out, ln)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID.String() < out[j].ProductID.String()
		}
		return out[i].Size < out[j].Size
	})
	return out, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrSizeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
