package events

import (
	"github.com/shopspring/decimal"
)

// OrderPayload is carried by every order.* event.
type OrderPayload struct {
	OrderID         int64           `json:"order_id"`
	ExternalID      string          `json:"external_id"`
	Status          string          `json:"status"`
	PreviousStatus  string          `json:"previous_status,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency,omitempty"`
	ItemCount       int             `json:"item_count,omitempty"`
	ProviderOrderID string          `json:"provider_order_id,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// ProductPayload is carried by product.synced and product.price_changed.
type ProductPayload struct {
	ProductID         int64            `json:"product_id"`
	ProviderProductID string           `json:"provider_product_id,omitempty"`
	ProviderShopID    string           `json:"provider_shop_id,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	PreviousPrice     *decimal.Decimal `json:"previous_price,omitempty"`
}

// CatalogPayload summarises a bulk sync.
type CatalogPayload struct {
	ShopID string `json:"shop_id"`
	Total  int    `json:"total"`
	Synced int    `json:"synced"`
	Failed int    `json:"failed"`
}
