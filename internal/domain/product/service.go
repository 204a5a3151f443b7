package product

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
	"github.com/example/pod-storefront/internal/validate"
)

var ErrProductNotFound = apperr.NotFound("product not found")

// Service serves storefront reads and local catalog administration.
type Service struct {
	repo   store.ProductRepository
	client provider.Client
	options
}

func NewService(repo store.ProductRepository, client provider.Client, opts ...Option) *Service {
	o := buildOptions(opts)
	o.logger = o.logger.Named("catalog")
	return &Service{repo: repo, client: client, options: o}
}

// ListActive returns the active products, optionally in one category.
func (s *Service) ListActive(ctx context.Context, category string) ([]*model.Product, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	return cached(ctx, &s.options, listKey(category), func() ([]*model.Product, error) {
		products, err := s.repo.List(ctx, model.ProductFilter{
			Statuses: []model.ProductStatus{model.ProductStatusActive},
			Category: category,
		})
		if err != nil {
			return nil, apperr.Internal("list products", err)
		}
		return products, nil
	})
}

// List returns products for administration without caching.
func (s *Service) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperr.Validation("unknown product status %q", st)
		}
	}
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list products", err)
	}
	return products, nil
}

// Get returns a product of any status.
func (s *Service) Get(ctx context.Context, id int64) (*model.Product, error) {
	return cached(ctx, &s.options, productKey(id), func() (*model.Product, error) {
		p, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, apperr.Internal("get product", err)
		}
		return p, nil
	})
}

// GetActive returns a product only when it is for sale.
func (s *Service) GetActive(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// Categories lists the collections that have active products.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return cached(ctx, &s.options, categoriesKey, func() ([]string, error) {
		c, err := s.repo.Categories(ctx)
		if err != nil {
			return nil, apperr.Internal("list categories", err)
		}
		return c, nil
	})
}

// CreateInput describes a locally created product.
type CreateInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=10000"`
	Category    string          `json:"category" validate:"max=100"`
	ImageURL    string          `json:"image_url" validate:"max=2048"`
	Price       decimal.Decimal `json:"price"`
}

// Create stores a placeholder product. It has no provider linkage and stays
// inactive until an admin activates it or a sync links it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}
	image := strings.TrimSpace(in.ImageURL)
	if image == "" {
		image = model.PlaceholderImage
	}
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		ImageURL:    image,
		Price:       in.Price.Round(2),
		Status:      model.ProductStatusInactive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Internal("create product", err)
	}
	s.invalidate(ctx, p.ID)
	s.logger.Info("product created", zap.Int64("product_id", p.ID))
	return p, nil
}

// UpdateInput lists the locally editable fields. Nil fields are unchanged.
// Price is not editable here; it goes through PriceService.
type UpdateInput struct {
	Name        *string              `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string              `json:"description" validate:"omitempty,max=10000"`
	Category    *string              `json:"category" validate:"omitempty,max=100"`
	ImageURL    *string              `json:"image_url" validate:"omitempty,max=2048"`
	Status      *model.ProductStatus `json:"status"`
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("unknown product status %q", *in.Status)
	}

	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get product", err)
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
		if p.ImageURL == "" {
			p.ImageURL = model.PlaceholderImage
		}
	}
	if in.Status != nil {
		p.Status = *in.Status
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal("update product", err)
	}
	s.invalidate(ctx, p.ID)
	return p, nil
}

// Deactivate soft-deletes a product. Orders that reference it keep their
// item snapshot.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, model.ProductStatusInactive)
}

// Archive hides a product permanently without deleting the row.
func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, model.ProductStatusArchived)
}

func (s *Service) setStatus(ctx context.Context, id int64, status model.ProductStatus) error {
	err := s.repo.SetStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return apperr.Internal("set product status", err)
	}
	s.invalidate(ctx, id)
	s.logger.Info("product status changed", zap.Int64("product_id", id), zap.String("status", string(status)))
	return nil
}

// Delete removes the row. This is a maintenance operation outside the sync
// path; order items keep their snapshot and lose the reference.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return apperr.Internal("delete product", err)
	}
	s.invalidate(ctx, id)
	s.logger.Warn("product deleted", zap.Int64("product_id", id))
	return nil
}

// Shops lists the provider storefronts.
func (s *Service) Shops(ctx context.Context) ([]provider.Shop, error) {
	return s.client.GetShops(ctx)
}

// Publish pushes a provider product to its sales channel. When the publish
// call fails the provider is told to halt publishing so the product does not
// stay stuck in the publishing state.
func (s *Service) Publish(ctx context.Context, shopID, providerProductID string) error {
	if shopID == "" || providerProductID == "" {
		return apperr.Validation("shop id and provider product id are required")
	}
	err := s.client.Publish(ctx, shopID, providerProductID, provider.FullPublish)
	if err == nil {
		s.logger.Info("product published", zap.String("shop_id", shopID), zap.String("provider_product_id", providerProductID))
		return nil
	}
	if errors.Is(err, apperr.ErrNotConfigured) {
		return err
	}
	if haltErr := s.client.HaltPublishing(ctx, shopID, providerProductID, err.Error()); haltErr != nil {
		s.logger.Warn("failed to halt publishing",
			zap.String("provider_product_id", providerProductID),
			zap.Error(haltErr))
	}
	return err
}

// Unpublish removes a provider product from its sales channel.
func (s *Service) Unpublish(ctx context.Context, shopID, providerProductID string) error {
	if shopID == "" || providerProductID == "" {
		return apperr.Validation("shop id and provider product id are required")
	}
	return s.client.Unpublish(ctx, shopID, providerProductID)
}

// ResetPublishing clears a stuck publishing state on the provider.
func (s *Service) ResetPublishing(ctx context.Context, shopID, providerProductID string) error {
	if shopID == "" || providerProductID == "" {
		return apperr.Validation("shop id and provider product id are required")
	}
	return s.client.ResetPublishingStatus(ctx, shopID, providerProductID)
}
