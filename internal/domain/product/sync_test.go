package product

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/cache"
	"github.com/example/pod-storefront/internal/infrastructure/store/mocks"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
)

const testShop = "shop-1"

func catalogProduct(id string, cents int64) provider.Product {
	return provider.Product{
		ID:       provider.ID(id),
		Title:    "Product " + id,
		Tags:     []string{"shirts"},
		Images:   []provider.Image{{Src: "https://img/" + id + ".png"}},
		Variants: []provider.Variant{{ID: 1, Price: cents, IsEnabled: true}},
	}
}

func newCatalog(n, pageSize int) *provider.Simulated {
	sim := provider.NewSimulated(nil)
	sim.PageSize = pageSize
	for i := 1; i <= n; i++ {
		sim.AddProduct(testShop, catalogProduct(strconv.Itoa(i), int64(1000+i)))
	}
	return sim
}

func TestSyncService_SyncOne(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts then updates by provider key", func(t *testing.T) {
		sim := newCatalog(1, 0)
		repo := mocks.NewMockProductRepository()
		rec := &events.Recorder{}
		svc := NewSyncService(sim, repo, WithPublisher(rec))

		first, err := svc.SyncOne(ctx, testShop, "1")
		require.NoError(t, err)
		assert.Equal(t, "Product 1", first.Name)
		assert.True(t, first.Price.Equal(decimal.RequireFromString("10.01")))
		assert.Equal(t, "shirts", first.Category)

		second, err := svc.SyncOne(ctx, testShop, "1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, repo.Count())
		assert.Len(t, rec.OfType(events.ProductSynced), 2)
	})

	t.Run("keeps a locally assigned category", func(t *testing.T) {
		sim := newCatalog(1, 0)
		repo := mocks.NewMockProductRepository()
		repo.Seed(&model.Product{ProviderProductID: "1", ProviderShopID: testShop, Category: "featured"})
		svc := NewSyncService(sim, repo)

		p, err := svc.SyncOne(ctx, testShop, "1")
		require.NoError(t, err)
		assert.Equal(t, "featured", p.Category)
	})

	t.Run("surfaces provider errors", func(t *testing.T) {
		sim := newCatalog(1, 0)
		sim.FailOn("GetProduct", "1", apperr.NewProviderError(500, "upstream"))
		repo := mocks.NewMockProductRepository()
		svc := NewSyncService(sim, repo)

		_, err := svc.SyncOne(ctx, testShop, "1")
		assert.ErrorIs(t, err, apperr.ErrProvider)
		assert.Equal(t, 0, repo.Count())
	})

	t.Run("not configured", func(t *testing.T) {
		sim := newCatalog(1, 0)
		sim.Configured = false
		svc := NewSyncService(sim, mocks.NewMockProductRepository())

		_, err := svc.SyncOne(ctx, testShop, "1")
		assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	})

	t.Run("requires ids", func(t *testing.T) {
		svc := NewSyncService(newCatalog(0, 0), mocks.NewMockProductRepository())
		_, err := svc.SyncOne(ctx, "", "1")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("invalidates cached views", func(t *testing.T) {
		sim := newCatalog(1, 0)
		repo := mocks.NewMockProductRepository()
		views := cache.NewMemory()
		require.NoError(t, views.Set(ctx, listKey(""), []int{1}, 0))
		svc := NewSyncService(sim, repo, WithCache(views, 0))

		_, err := svc.SyncOne(ctx, testShop, "1")
		require.NoError(t, err)
		assert.Equal(t, 0, views.Len())
	})
}

func TestSyncService_SyncProduct(t *testing.T) {
	ctx := context.Background()
	sim := newCatalog(2, 0)
	repo := mocks.NewMockProductRepository()
	linked := repo.Seed(&model.Product{ProviderProductID: "2", ProviderShopID: testShop, Name: "old"})
	placeholder := repo.Seed(&model.Product{Name: "local only", Status: model.ProductStatusInactive})
	svc := NewSyncService(sim, repo)

	p, err := svc.SyncProduct(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product 2", p.Name)

	_, err = svc.SyncProduct(ctx, placeholder.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SyncProduct(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncService_SyncAll(t *testing.T) {
	ctx := context.Background()

	for _, concurrency := range []int{1, 4} {
		t.Run("pages of 10,10,3 concurrency "+strconv.Itoa(concurrency), func(t *testing.T) {
			sim := newCatalog(23, 10)
			sim.FailOn("GetProduct", "7", apperr.NewProviderError(500, "broken mockup"))
			repo := mocks.NewMockProductRepository()
			rec := &events.Recorder{}
			svc := NewSyncService(sim, repo, WithPublisher(rec), WithConcurrency(concurrency))

			report, err := svc.SyncAll(ctx, testShop)
			require.NoError(t, err)
			assert.Equal(t, 23, report.Total)
			assert.Equal(t, 22, report.Synced)
			assert.Equal(t, 1, report.Failed)
			require.Len(t, report.Failures, 1)
			assert.Equal(t, "7", report.Failures[0].ProviderProductID)
			assert.Contains(t, report.Failures[0].Reason, "broken mockup")

			assert.Equal(t, 22, repo.Count())
			assert.Equal(t, 3, sim.CallCount("GetProducts"))
			assert.Len(t, rec.OfType(events.CatalogSynced), 1)
		})
	}

	t.Run("total is independent of page size", func(t *testing.T) {
		for _, size := range []int{0, 1, 5, 23, 100} {
			sim := newCatalog(23, size)
			svc := NewSyncService(sim, mocks.NewMockProductRepository())
			report, err := svc.SyncAll(ctx, testShop)
			require.NoError(t, err)
			assert.Equal(t, 23, report.Total, "page size %d", size)
			assert.Equal(t, report.Total, report.Synced+report.Failed)
		}
	})

	t.Run("local write failures are counted", func(t *testing.T) {
		sim := newCatalog(3, 0)
		repo := mocks.NewMockProductRepository()
		repo.UpsertErrFor["2"] = errors.New("disk full")
		svc := NewSyncService(sim, repo)

		report, err := svc.SyncAll(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Total)
		assert.Equal(t, 2, report.Synced)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "2", report.Failures[0].ProviderProductID)
	})

	t.Run("listing failure returns partial report", func(t *testing.T) {
		sim := newCatalog(0, 0)
		sim.Configured = false
		svc := NewSyncService(sim, mocks.NewMockProductRepository())

		report, err := svc.SyncAll(ctx, testShop)
		assert.ErrorIs(t, err, apperr.ErrNotConfigured)
		require.NotNil(t, report)
		assert.Equal(t, 0, report.Total)
	})

	t.Run("requires shop id", func(t *testing.T) {
		svc := NewSyncService(newCatalog(0, 0), mocks.NewMockProductRepository())
		_, err := svc.SyncAll(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}
