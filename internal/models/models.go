package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodStripe   PaymentMethod = "Stripe"
	MethodRazorpay PaymentMethod = "Razorpay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCOD, MethodStripe, MethodRazorpay:
		return true
	}
	return false
}

type Product struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey"                 json:"id"`
	Name               string              `gorm:"not null"                             json:"name"`
	Description        string              `gorm:"not null;default:''"                  json:"description"`
	Category           string              `gorm:"index"                                json:"category"`
	SubCategory        string              `json:"sub_category"`
	Price              decimal.Decimal     `gorm:"type:numeric(12,2);not null"          json:"price"`
	Images             StringList          `gorm:"type:text"                            json:"images"`
	Bestseller         bool                `gorm:"not null;default:false"               json:"bestseller"`
	Enabled            bool                `gorm:"not null;default:true;index"          json:"enabled"`
	IsOnPromotion      bool                `gorm:"not null;default:false;index"         json:"is_on_promotion"`
	PromotionPrice     decimal.NullDecimal `gorm:"type:numeric(12,2)"                   json:"promotion_price"`
	PromotionStartDate *time.Time          `json:"promotion_start_date,omitempty"`
	PromotionEndDate   *time.Time          `gorm:"index"                                json:"promotion_end_date,omitempty"`
	Sizes              []ProductSize       `gorm:"constraint:OnDelete:CASCADE"          json:"sizes"`
	CreatedAt          time.Time           `gorm:"index"                                json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TotalStock sums stock over every size row loaded with the product.
func (p *Product) TotalStock() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}

// FirstImage returns the image snapshotted onto order lines.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type ProductSize struct {
	ID        uint      `gorm:"primaryKey"                                         json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_size"    json:"product_id"`
	Size      string    `gorm:"not null;uniqueIndex:idx_product_size"              json:"size"`
	Stock     int       `gorm:"not null;default:0;check:stock >= 0"                json:"stock"`
}

func (ProductSize) TableName() string {
	return "product_sizes"
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a Address) Empty() bool {
	return a == Address{}
}

func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

type Order struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"              json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null"              json:"user_id"`
	Items            []OrderItem     `gorm:"constraint:OnDelete:CASCADE"           json:"items"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null"           json:"amount"`
	DeliveryFee      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"delivery_fee"`
	Address          Address         `gorm:"type:text;not null"                    json:"address"`
	PaymentMethod    PaymentMethod   `gorm:"not null"                              json:"payment_method"`
	Payment          bool            `gorm:"not null;default:false;index"          json:"payment"`
	Status           string          `gorm:"not null"                              json:"status"`
	StatusChangeDate time.Time       `gorm:"not null"                              json:"status_change_date"`
	Date             time.Time       `gorm:"not null;index"                        json:"date"`
	GatewayRef       string          `gorm:"index"                                 json:"gateway_ref,omitempty"`
	ChargedAt        time.Time       `gorm:"index"                                 json:"charged_at"`
	PaymentRef       string          `json:"payment_ref,omitempty"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"                                 json:"-"`
}

type OrderItem struct {
	ID                  uint            `gorm:"primaryKey"                  json:"-"`
	OrderID             uint            `gorm:"index;not null"              json:"order_id"`
	ProductID           uuid.UUID       `gorm:"type:uuid;index;not null"    json:"product_id"`
	Name                string          `gorm:"not null"                    json:"name"`
	Image               string          `json:"image"`
	Size                string          `gorm:"not null"                    json:"size"`
	Quantity            int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_at_purchase"`
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                         json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_line;not null" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_line;not null" json:"product_id"`
	Size      string    `gorm:"uniqueIndex:idx_cart_line;not null"           json:"size"`
	Quantity  int       `gorm:"default:1;check:quantity > 0"                 json:"quantity"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}

// WishlistItem is one saved (product, size) for a user. Adding the same
// pair twice is rejected by idx_wishlist_line.
type WishlistItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                             json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_wishlist_line;not null" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_wishlist_line;not null" json:"product_id"`
	Size      string    `gorm:"uniqueIndex:idx_wishlist_line;not null"           json:"size"`
	CreatedAt time.Time `json:"added_at"`
}

func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	default:
		return errors.New("unsupported json column type")
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &ProductSize{}, &Order{}, &OrderItem{}, &CartItem{}, &WishlistItem{})
}
