package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/model"
)

// ErrNotFound is returned when a row does not exist. It matches
// apperr.ErrNotFound.
var ErrNotFound = &apperr.Error{Kind: apperr.KindNotFound, Message: "record not found"}

// ProductRepository persists the local catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByProviderKey(ctx context.Context, shopID, providerProductID string) (*model.Product, error)
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	// Categories lists the distinct non-empty categories of active products.
	Categories(ctx context.Context) ([]string, error)

	Create(ctx context.Context, p *model.Product) error
	// Update saves the locally editable fields: name, description, category,
	// image and status.
	Update(ctx context.Context, p *model.Product) error
	// UpsertByProviderKey inserts or updates by (provider product id, provider
	// shop id). An existing non-empty category and the status of an existing
	// row are kept. created reports whether a row was inserted.
	UpsertByProviderKey(ctx context.Context, p *model.Product) (saved *model.Product, created bool, err error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error
	SetStatus(ctx context.Context, id int64, status model.ProductStatus) error
	Delete(ctx context.Context, id int64) error
}

// OrderPatch lists optional column updates applied with a transition. Nil
// fields are left unchanged.
type OrderPatch struct {
	PaymentStatus    *model.PaymentStatus
	PaymentReference *string
	ProviderStatus   *string
	TrackingNumber   *string
}

// OrderRepository persists orders. Every state change is a conditional
// update so concurrent requests cannot both win.
type OrderRepository interface {
	// Create stores the order and all of its items atomically, filling in ids
	// and timestamps.
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// GetByExternalID looks an order up by the reference handed to customers.
	GetByExternalID(ctx context.Context, externalID string) (*model.Order, error)
	List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error)

	// Transition moves the order to `to` if its current status is one of
	// from. It reports false when the status did not match.
	Transition(ctx context.Context, id int64, from []model.OrderStatus, to model.OrderStatus, patch OrderPatch) (bool, error)
	// CancelUnclaimed moves the order to cancelled if its status is one of
	// from and no submission claim or provider order exists.
	CancelUnclaimed(ctx context.Context, id int64, from []model.OrderStatus) (bool, error)

	// ClaimSubmission reserves a payment-completed, unsubmitted order for one
	// submitter. It reports false if another claim or a provider order id
	// already exists.
	ClaimSubmission(ctx context.Context, id int64, token string) (bool, error)
	// ReleaseSubmission drops a claim that never produced a provider order.
	// An empty token releases any claim.
	ReleaseSubmission(ctx context.Context, id int64, token string) (bool, error)
	// CompleteSubmission stores the provider order id and moves the order to
	// submitted_to_production, only while token holds the claim, the order is
	// still payment_completed and no provider order id is set.
	CompleteSubmission(ctx context.Context, id int64, token, shopID, providerOrderID string) (bool, error)
	MarkProductionRequested(ctx context.Context, id int64) error
}
