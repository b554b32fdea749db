package transport

import (
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

type AddToWishlistRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
}

type WishlistCheckResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	InWishlist bool      `json:"in_wishlist"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items         []CreateOrderItem    `json:"items"`
	Address       models.Address       `json:"address"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

type StripeVerifyRequest struct {
	OrderID uint `json:"order_id"`
	Success bool `json:"success"`
}

type RazorpayVerifyRequest struct {
	OrderID           uint   `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type UpdateStatusRequest struct {
	Status string     `json:"status"`
	AsOf   *time.Time `json:"as_of"`
}

type CreateProductRequest struct {
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	SubCategory        string              `json:"sub_category"`
	Price              decimal.Decimal     `json:"price"`
	Images             []string            `json:"images"`
	Bestseller         bool                `json:"bestseller"`
	Enabled            *bool               `json:"enabled"`
	Sizes              map[string]int      `json:"sizes"`
	IsOnPromotion      bool                `json:"is_on_promotion"`
	PromotionPrice     decimal.NullDecimal `json:"promotion_price"`
	PromotionStartDate *time.Time          `json:"promotion_start_date"`
	PromotionEndDate   *time.Time          `json:"promotion_end_date"`
}

type SetStockRequest struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

type PromotionRequest struct {
	IsOnPromotion      bool                `json:"is_on_promotion"`
	PromotionPrice     decimal.NullDecimal `json:"promotion_price"`
	PromotionStartDate *time.Time          `json:"promotion_start_date"`
	PromotionEndDate   *time.Time          `json:"promotion_end_date"`
}

type ShortfallResponse struct {
	Message   string    `json:"message"`
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

type GatewayErrorResponse struct {
	Message string `json:"message"`
	OrderID uint   `json:"order_id"`
}

type SalesEntry struct {
	ProductID uuid.UUID `json:"product_id"`
	Units     int       `json:"units"`
}
