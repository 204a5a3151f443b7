package product

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
)

// PriceService pushes local price changes to the provider. The provider is
// written first; the local row changes only after the provider accepts.
type PriceService struct {
	client provider.Client
	repo   store.ProductRepository
	options
}

func NewPriceService(client provider.Client, repo store.ProductRepository, opts ...Option) *PriceService {
	o := buildOptions(opts)
	o.logger = o.logger.Named("price-sync")
	return &PriceService{client: client, repo: repo, options: o}
}

// PriceChange is the input of SyncPrice. Empty provider ids default to the
// product's own linkage.
type PriceChange struct {
	ProductID         int64
	Price             decimal.Decimal
	ShopID            string
	ProviderProductID string
}

// SyncPrice sets the price of every enabled variant on the provider and
// then stores the new price locally. On any provider failure the local row
// is left untouched and the error is returned.
func (s *PriceService) SyncPrice(ctx context.Context, in PriceChange) (*model.Product, error) {
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("price must be positive")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return nil, apperr.Validation("price has more than two decimal places")
	}

	p, err := s.repo.GetByID(ctx, in.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get product", err)
	}
	shopID, providerID := in.ShopID, in.ProviderProductID
	if shopID == "" {
		shopID = p.ProviderShopID
	}
	if providerID == "" {
		providerID = p.ProviderProductID
	}
	if shopID == "" || providerID == "" {
		return nil, apperr.Validation("product %d is not linked to the provider", p.ID)
	}

	remote, err := s.client.GetProduct(ctx, shopID, providerID)
	if err != nil {
		return nil, err
	}
	variants := priceUpdate(remote, provider.ToMinor(in.Price))
	if len(variants) == 0 {
		return nil, apperr.Validation("provider product %s has no variants", providerID)
	}
	if _, err := s.client.UpdateProduct(ctx, shopID, providerID, provider.ProductInput{Variants: variants}); err != nil {
		s.logger.Warn("provider rejected price update",
			zap.Int64("product_id", p.ID),
			zap.String("provider_product_id", providerID),
			zap.Error(err))
		return nil, err
	}

	previous := p.Price
	if err := s.repo.UpdatePrice(ctx, p.ID, in.Price); err != nil {
		s.logger.Error("provider price updated but local write failed",
			zap.Int64("product_id", p.ID),
			zap.String("price", in.Price.String()),
			zap.Error(err))
		return nil, apperr.Internal("save product price", err)
	}
	p.Price = in.Price

	s.invalidate(ctx, p.ID)
	events.Emit(ctx, s.publisher, s.logger, events.ProductPriceChanged, productEventKey(p.ID), events.ProductPayload{
		ProductID:         p.ID,
		ProviderProductID: providerID,
		ProviderShopID:    shopID,
		Price:             in.Price,
		PreviousPrice:     &previous,
	})
	s.logger.Info("price synced",
		zap.Int64("product_id", p.ID),
		zap.String("previous", previous.String()),
		zap.String("price", in.Price.String()))
	return p, nil
}
