package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/inventory"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
)

const maxListLimit = 1000

// enabledBatch is the page size EnabledProducts reads with.
var enabledBatch = maxListLimit

type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	SubCategory string
	Price       decimal.Decimal
	Images      []string
	Bestseller  bool
	Enabled     bool
	Sizes       map[string]int
	Promotion   promotion.Settings
}

type CatalogService struct {
	Repo    *GormRepo
	Ledger  *inventory.Ledger
	Sweeper *promotion.Sweeper
	Now     func() time.Time
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, sweeper *promotion.Sweeper) *CatalogService {
	return &CatalogService{
		Repo:    &GormRepo{DB: db},
		Ledger:  ledger,
		Sweeper: sweeper,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// List sweeps expired promotions before reading so the listing never shows a
// lapsed flag.
func (s *CatalogService) List(ctx context.Context, showDisabled bool, offset, limit int) (int64, []models.Product, error) {
	if _, err := s.SweepExpired(ctx); err != nil {
		logging.FromContext(ctx).Warn("promotion_sweep_error", "component", "catalog", "error", err)
	}
	return s.Repo.GetProducts(ctx, showDisabled, offset, limit)
}

// EnabledProducts returns every visible product with its sizes in catalog order.
func (s *CatalogService) EnabledProducts(ctx context.Context) ([]models.Product, error) {
	var all []models.Product
	for offset := 0; ; offset += enabledBatch {
		_, items, err := s.Repo.GetProducts(ctx, false, offset, enabledBatch)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < enabledBatch {
			return all, nil
		}
	}
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be > 0", ErrValidation)
	}
	if len(in.Sizes) == 0 {
		return nil, fmt.Errorf("%w: at least one size required", ErrValidation)
	}
	if err := promotion.Validate(in.Price, in.Promotion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p := &models.Product{
		Name:               in.Name,
		Description:        in.Description,
		Category:           in.Category,
		SubCategory:        in.SubCategory,
		Price:              in.Price,
		Images:             models.StringList(in.Images),
		Bestseller:         in.Bestseller,
		Enabled:            in.Enabled,
		IsOnPromotion:      in.Promotion.IsOnPromotion,
		PromotionPrice:     in.Promotion.Price,
		PromotionStartDate: in.Promotion.Start,
		PromotionEndDate:   in.Promotion.End,
	}
	for size, stock := range in.Sizes {
		if size == "" || stock < 0 {
			return nil, fmt.Errorf("%w: sizes need a label and stock >= 0", ErrValidation)
		}
		p.Sizes = append(p.Sizes, models.ProductSize{Size: size, Stock: stock})
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.Repo.GetProduct(ctx, p.ID)
}

// SetStock sets an absolute stock level for one size.
func (s *CatalogService) SetStock(ctx context.Context, id uuid.UUID, size string, qty int) (*models.Product, error) {
	if err := s.Ledger.SetStock(ctx, id, size, qty); err != nil {
		switch {
		case errors.Is(err, inventory.ErrValidation):
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		case errors.Is(err, inventory.ErrProductNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) ToggleEnabled(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if err := s.Repo.ToggleEnabled(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.GetProduct(ctx, id)
}

// SetPromotion stores validated promotion fields. A window that has already
// ended is saved switched off.
func (s *CatalogService) SetPromotion(ctx context.Context, id uuid.UUID, in promotion.Settings) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := promotion.Validate(p.Price, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	on := in.IsOnPromotion
	if on && in.End != nil && in.End.Before(s.Now()) {
		on = false
	}

	fields := map[string]any{
		"is_on_promotion":      on,
		"promotion_price":      in.Price,
		"promotion_start_date": in.Start,
		"promotion_end_date":   in.End,
	}
	if err := s.Repo.UpdatePromotion(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) SweepExpired(ctx context.Context) (int64, error) {
	if s.Sweeper == nil {
		return 0, nil
	}
	return s.Sweeper.SweepExpired(ctx, s.Now())
}
