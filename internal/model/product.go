package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus replaces a bare is_active flag so new lifecycle states can be
// added without a schema change.
type ProductStatus string

const (
	ProductStatusActive         ProductStatus = "active"
	ProductStatusInactive       ProductStatus = "inactive"
	ProductStatusArchived       ProductStatus = "archived"
	ProductStatusPendingRemoval ProductStatus = "pending_removal"
)

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusArchived, ProductStatusPendingRemoval:
		return true
	}
	return false
}

// PlaceholderImage is stored when the provider lists no images.
const PlaceholderImage = "/images/placeholder.png"

// Product is the locally cached catalog record.
type Product struct {
	ID                int64           `json:"id"`
	ProviderProductID string          `json:"provider_product_id,omitempty"`
	ProviderShopID    string          `json:"provider_shop_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	ImageURL          string          `json:"image_url"`
	Category          string          `json:"category"`
	Status            ProductStatus   `json:"status"`
	ProviderData      json.RawMessage `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsActive reports whether the product can be sold.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsLinked reports whether the product has a provider identity.
func (p *Product) IsLinked() bool {
	return p.ProviderProductID != "" && p.ProviderShopID != ""
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Statuses []ProductStatus
	Category string
	ShopID   string
	Limit    int
	Offset   int
}
