package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the local fulfillment state.
type OrderStatus string

const (
	OrderStatusCreated               OrderStatus = "created"
	OrderStatusPaymentPending        OrderStatus = "payment_pending"
	OrderStatusPaymentCompleted      OrderStatus = "payment_completed"
	OrderStatusPaymentFailed         OrderStatus = "payment_failed"
	OrderStatusSubmittedToProduction OrderStatus = "submitted_to_production"
	OrderStatusInProduction          OrderStatus = "in_production"
	OrderStatusShipped               OrderStatus = "shipped"
	OrderStatusCancelled             OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPaymentFailed, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks the charge independently of fulfillment.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Customer is the buyer contact.
type Customer struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// Address is a postal address in the provider's address_to shape.
type Address struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country" validate:"required,len=2"`
	Region    string `json:"region,omitempty"`
	Address1  string `json:"address1" validate:"required"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
}

// OrderItem is a denormalized snapshot of a product taken when the order is
// created. Later catalog edits never change it.
type OrderItem struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	ProviderProductID string          `json:"provider_product_id"`
	ProviderVariantID int64           `json:"provider_variant_id"`
	Name              string          `json:"name"`
	Size              string          `json:"size,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Quantity          int             `json:"quantity"`
	ImageURL          string          `json:"image_url"`
}

// LineTotal is unit price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed order with its item snapshot and computed amounts.
type Order struct {
	ID                  int64           `json:"id"`
	ExternalID          string          `json:"external_id"`
	Customer            Customer        `json:"customer"`
	ShippingAddress     Address         `json:"shipping_address"`
	BillingAddress      Address         `json:"billing_address"`
	Currency            string          `json:"currency"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Shipping            decimal.Decimal `json:"shipping"`
	Tax                 decimal.Decimal `json:"tax"`
	Total               decimal.Decimal `json:"total"`
	Status              OrderStatus     `json:"status"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	PaymentReference    string          `json:"payment_reference,omitempty"`
	ProviderShopID      string          `json:"provider_shop_id,omitempty"`
	ProviderOrderID     *string         `json:"provider_order_id"`
	ProviderStatus      *string         `json:"provider_status"`
	TrackingNumber      *string         `json:"tracking_number"`
	ProductionRequested bool            `json:"production_requested"`
	SubmissionToken     string          `json:"-"`
	Items               []OrderItem     `json:"items"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsSubmitted reports whether the provider has assigned an order id.
func (o *Order) IsSubmitted() bool {
	return o.ProviderOrderID != nil && *o.ProviderOrderID != ""
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Statuses []OrderStatus
	Email    string
	Limit    int
	Offset   int
}
