package provider

import (
	"context"
)

// Status reports whether the provider can be called.
type Status string

const (
	StatusConfigured    Status = "configured"
	StatusNotConfigured Status = "not_configured"
)

// Client is the contract of the print-on-demand provider API. HTTPClient
// talks to the real service; Simulated is an in-memory stand-in selected by
// configuration.
//
// Implementations never retry. Every method returns apperr.NotConfigured when
// credentials are missing and *apperr.ProviderError for upstream failures.
type Client interface {
	Status() Status

	GetShops(ctx context.Context) ([]Shop, error)
	GetProducts(ctx context.Context, shopID, cursor string) (*Page[Product], error)
	GetProduct(ctx context.Context, shopID, productID string) (*Product, error)
	CreateProduct(ctx context.Context, shopID string, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, shopID, productID string, in ProductInput) (*Product, error)

	Publish(ctx context.Context, shopID, productID string, in PublishInput) error
	Unpublish(ctx context.Context, shopID, productID string) error
	HaltPublishing(ctx context.Context, shopID, productID, reason string) error
	ResetPublishingStatus(ctx context.Context, shopID, productID string) error

	CreateOrder(ctx context.Context, shopID string, in OrderInput) (*Order, error)
	GetOrder(ctx context.Context, shopID, orderID string) (*Order, error)
	CalculateShipping(ctx context.Context, shopID string, in ShippingInput) (*ShippingCost, error)
	SubmitOrderForProduction(ctx context.Context, shopID, orderID string) error
}
