// Package testenv builds throwaway databases and fixtures for package tests.
package testenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the schema migrated.
// Its pool has a single connection, so transactions never overlap.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "sqlite://:memory:")
}

// ConcurrentDBs returns databases whose pools hand out several connections so
// racing transactions really overlap: a WAL-mode SQLite file always, plus
// Postgres when STOREFRONT_TEST_DATABASE_URL is set.
func ConcurrentDBs(t *testing.T) map[string]*gorm.DB {
	t.Helper()

	dbs := map[string]*gorm.DB{
		"sqlite_wal": open(t, "sqlite://file:"+filepath.Join(t.TempDir(), "storefront.db")),
	}
	if dsn := os.Getenv("STOREFRONT_TEST_DATABASE_URL"); dsn != "" {
		dbs["postgres"] = open(t, dsn)
	}
	return dbs
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

type ProductOption func(*models.Product)

func WithPromotion(price string, start, end *time.Time) ProductOption {
	return func(p *models.Product) {
		p.IsOnPromotion = true
		p.PromotionPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
		p.PromotionStartDate = start
		p.PromotionEndDate = end
	}
}

func Disabled() ProductOption {
	return func(p *models.Product) { p.Enabled = false }
}

func CreatedAt(t time.Time) ProductOption {
	return func(p *models.Product) { p.CreatedAt = t }
}

// SeedProduct inserts an enabled product with the given per-size stock.
func SeedProduct(t *testing.T, gdb *gorm.DB, name, price string, sizes map[string]int, opts ...ProductOption) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Images:  models.StringList{name + ".png"},
		Enabled: true,
	}
	for size, stock := range sizes {
		p.Sizes = append(p.Sizes, models.ProductSize{Size: size, Stock: stock})
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, gdb.Create(p).Error)

	// gorm skips zero-value bools that carry a default tag on insert.
	if !p.Enabled {
		require.NoError(t, gdb.Model(p).Update("enabled", false).Error)
	}
	return p
}

func StockOf(t *testing.T, gdb *gorm.DB, productID uuid.UUID, size string) int {
	t.Helper()

	var row models.ProductSize
	require.NoError(t, gdb.Where("product_id = ? AND size = ?", productID, size).First(&row).Error)
	return row.Stock
}
