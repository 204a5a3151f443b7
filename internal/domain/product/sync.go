package product

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
)

// SyncFailure names one catalog item that could not be synced.
type SyncFailure struct {
	ProviderProductID string `json:"provider_product_id"`
	Reason            string `json:"reason"`
}

// SyncReport summarises a bulk sync. Total counts every enumerated item,
// so Total == Synced + Failed.
type SyncReport struct {
	ShopID   string        `json:"shop_id"`
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Failures []SyncFailure `json:"failures"`
}

// SyncService pulls provider catalog entries into the local store.
type SyncService struct {
	client provider.Client
	repo   store.ProductRepository
	options
}

func NewSyncService(client provider.Client, repo store.ProductRepository, opts ...Option) *SyncService {
	o := buildOptions(opts)
	o.logger = o.logger.Named("catalog-sync")
	return &SyncService{client: client, repo: repo, options: o}
}

// SyncOne fetches one provider product and upserts it by its provider key.
func (s *SyncService) SyncOne(ctx context.Context, shopID, providerProductID string) (*model.Product, error) {
	if shopID == "" || providerProductID == "" {
		return nil, apperr.Validation("shop id and provider product id are required")
	}

	remote, err := s.client.GetProduct(ctx, shopID, providerProductID)
	if err != nil {
		return nil, err
	}
	mapped, err := FromProvider(shopID, remote)
	if err != nil {
		return nil, err
	}

	saved, created, err := s.repo.UpsertByProviderKey(ctx, mapped)
	if err != nil {
		return nil, apperr.Internal("save synced product", err)
	}

	s.invalidate(ctx, saved.ID)
	events.Emit(ctx, s.publisher, s.logger, events.ProductSynced, productEventKey(saved.ID), events.ProductPayload{
		ProductID:         saved.ID,
		ProviderProductID: saved.ProviderProductID,
		ProviderShopID:    saved.ProviderShopID,
		Price:             saved.Price,
	})
	s.logger.Debug("product synced",
		zap.Int64("product_id", saved.ID),
		zap.String("provider_product_id", providerProductID),
		zap.Bool("created", created))
	return saved, nil
}

// SyncProduct re-syncs a local product from its provider linkage.
func (s *SyncService) SyncProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get product", err)
	}
	if !p.IsLinked() {
		return nil, apperr.Validation("product %d is not linked to the provider", id)
	}
	return s.SyncOne(ctx, p.ProviderShopID, p.ProviderProductID)
}

// SyncAll walks every catalog page and syncs each item independently. Item
// failures are collected in the report. An error is returned only when the
// catalog itself cannot be listed; the report then covers the items
// enumerated before the failure.
func (s *SyncService) SyncAll(ctx context.Context, shopID string) (*SyncReport, error) {
	if shopID == "" {
		return nil, apperr.Validation("shop id is required")
	}
	start := time.Now()

	type failure struct {
		index int
		SyncFailure
	}
	var (
		mu       sync.Mutex
		total    int
		synced   int
		failures []failure
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	walkErr := provider.WalkProducts(ctx, s.client, shopID, s.maxPages, func(page *provider.Page[provider.Product]) error {
		for _, item := range page.Items {
			index := total
			total++
			id := item.ID.String()
			g.Go(func() error {
				var err error
				if id == "" {
					err = errors.New("catalog entry has no id")
				} else {
					_, err = s.SyncOne(ctx, shopID, id)
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.metrics.SyncItem("failed")
					s.logger.Warn("product sync failed", zap.String("provider_product_id", id), zap.Error(err))
					failures = append(failures, failure{index: index, SyncFailure: SyncFailure{ProviderProductID: id, Reason: err.Error()}})
					return nil
				}
				s.metrics.SyncItem("synced")
				synced++
				return nil
			})
		}
		return nil
	})
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })
	report := &SyncReport{
		ShopID:   shopID,
		Total:    total,
		Synced:   synced,
		Failed:   len(failures),
		Failures: make([]SyncFailure, len(failures)),
	}
	for i, f := range failures {
		report.Failures[i] = f.SyncFailure
	}

	if walkErr != nil {
		s.logger.Error("catalog listing failed",
			zap.String("shop_id", shopID),
			zap.Int("enumerated", total),
			zap.Error(walkErr))
		return report, walkErr
	}

	events.Emit(ctx, s.publisher, s.logger, events.CatalogSynced, "shop-"+shopID, events.CatalogPayload{
		ShopID: shopID,
		Total:  report.Total,
		Synced: report.Synced,
		Failed: report.Failed,
	})
	s.logger.Info("catalog sync finished",
		zap.String("shop_id", shopID),
		zap.Int("total", report.Total),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func productEventKey(id int64) string {
	return "product-" + strconv.FormatInt(id, 10)
}
