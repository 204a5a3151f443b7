package provider

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/example/pod-storefront/internal/model"
)

// ID is a provider identifier. The provider returns some ids as JSON numbers
// and others as strings; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Shop is a storefront registered with the provider.
type Shop struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	SalesChannel string `json:"sales_channel,omitempty"`
}

// Image is a product mockup.
type Image struct {
	Src        string  `json:"src"`
	IsDefault  bool    `json:"is_default"`
	VariantIDs []int64 `json:"variant_ids,omitempty"`
}

// Variant is a purchasable configuration of a product. Price is in the
// currency's smallest subunit.
type Variant struct {
	ID        int64  `json:"id"`
	SKU       string `json:"sku,omitempty"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	IsEnabled bool   `json:"is_enabled"`
	IsDefault bool   `json:"is_default"`
}

// Product is the provider's catalog representation.
type Product struct {
	ID          ID        `json:"id"`
	ShopID      ID        `json:"shop_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Visible     bool      `json:"visible"`
	IsLocked    bool      `json:"is_locked,omitempty"`

	// Raw is the undecoded payload, kept for round-trip fidelity.
	Raw json.RawMessage `json:"-"`
}

// PriceVariant selects the variant that determines the product price: the
// enabled variant if one exists, else the first variant.
func (p *Product) PriceVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	for _, v := range p.Variants {
		if v.IsEnabled && v.IsDefault {
			return v, true
		}
	}
	for _, v := range p.Variants {
		if v.IsEnabled {
			return v, true
		}
	}
	return p.Variants[0], true
}

// PrimaryImage is the first listed image, or "" when there are none.
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if strings.TrimSpace(img.Src) != "" {
			return img.Src
		}
	}
	return ""
}

// VariantInput updates one variant of a product.
type VariantInput struct {
	ID        int64 `json:"id"`
	Price     int64 `json:"price"`
	IsEnabled *bool `json:"is_enabled,omitempty"`
}

// ProductInput is the body of create and update product calls. Empty fields
// are left untouched by the provider.
type ProductInput struct {
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	BlueprintID     int64           `json:"blueprint_id,omitempty"`
	PrintProviderID int64           `json:"print_provider_id,omitempty"`
	Variants        []VariantInput  `json:"variants,omitempty"`
	PrintAreas      json.RawMessage `json:"print_areas,omitempty"`
}

// PublishInput selects which fields a publish call pushes to the sales channel.
type PublishInput struct {
	Title       bool `json:"title"`
	Description bool `json:"description"`
	Images      bool `json:"images"`
	Variants    bool `json:"variants"`
	Tags        bool `json:"tags"`
}

// FullPublish publishes every field.
var FullPublish = PublishInput{Title: true, Description: true, Images: true, Variants: true, Tags: true}

// LineItem references one variant in an order or shipping quote.
type LineItem struct {
	ProductID string `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// OrderInput is the body of a create order call.
type OrderInput struct {
	ExternalID               string        `json:"external_id,omitempty"`
	Label                    string        `json:"label,omitempty"`
	LineItems                []LineItem    `json:"line_items"`
	ShippingMethod           int           `json:"shipping_method"`
	SendShippingNotification bool          `json:"send_shipping_notification"`
	AddressTo                model.Address `json:"address_to"`
}

// ShippingInput is the body of a shipping quote call.
type ShippingInput struct {
	LineItems []LineItem    `json:"line_items"`
	AddressTo model.Address `json:"address_to"`
}

// Shipment is a tracked parcel for a provider order.
type Shipment struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
	URL     string `json:"url,omitempty"`
}

// Order is the provider's representation of a production order.
type Order struct {
	ID            ID         `json:"id"`
	ExternalID    string     `json:"external_id,omitempty"`
	Status        string     `json:"status"`
	TotalPrice    int64      `json:"total_price,omitempty"`
	TotalShipping int64      `json:"total_shipping,omitempty"`
	Shipments     []Shipment `json:"shipments,omitempty"`
}

// TrackingNumber is the first shipment's number, or "".
func (o *Order) TrackingNumber() string {
	for _, s := range o.Shipments {
		if s.Number != "" {
			return s.Number
		}
	}
	return ""
}
