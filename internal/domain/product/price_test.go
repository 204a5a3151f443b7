package product

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/store/mocks"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
)

func newPriceFixture(t *testing.T) (*PriceService, *provider.Simulated, *mocks.MockProductRepository, *model.Product, *events.Recorder) {
	t.Helper()
	sim := provider.NewSimulated(nil)
	sim.AddProduct(testShop, provider.Product{
		ID: "p-1",
		Variants: []provider.Variant{
			{ID: 1, Price: 2000, IsEnabled: true},
			{ID: 2, Price: 2000},
		},
	})
	repo := mocks.NewMockProductRepository()
	p := repo.Seed(&model.Product{
		ProviderProductID: "p-1",
		ProviderShopID:    testShop,
		Name:              "Tee",
		Price:             decimal.RequireFromString("20.00"),
	})
	rec := &events.Recorder{}
	return NewPriceService(sim, repo, WithPublisher(rec)), sim, repo, p, rec
}

func TestPriceService_SyncPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes to provider then stores locally", func(t *testing.T) {
		svc, sim, repo, p, rec := newPriceFixture(t)

		updated, err := svc.SyncPrice(ctx, PriceChange{ProductID: p.ID, Price: decimal.RequireFromString("24.50")})
		require.NoError(t, err)
		assert.True(t, updated.Price.Equal(decimal.RequireFromString("24.50")))

		remote, err := sim.GetProduct(ctx, testShop, "p-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2450), remote.Variants[0].Price)
		assert.Equal(t, int64(2000), remote.Variants[1].Price)

		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("24.50")))

		changed := rec.OfType(events.ProductPriceChanged)
		require.Len(t, changed, 1)
		var payload events.ProductPayload
		require.NoError(t, changed[0].Decode(&payload))
		require.NotNil(t, payload.PreviousPrice)
		assert.True(t, payload.PreviousPrice.Equal(decimal.RequireFromString("20")))
	})

	t.Run("provider failure leaves local price unchanged", func(t *testing.T) {
		svc, sim, repo, p, rec := newPriceFixture(t)
		sim.FailOn("UpdateProduct", "p-1", apperr.NewProviderError(422, "price below cost"))
		before, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)

		_, err = svc.SyncPrice(ctx, PriceChange{ProductID: p.ID, Price: decimal.RequireFromString("1.00")})
		require.Error(t, err)
		var pe *apperr.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 422, pe.Status)

		after, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Price.String(), after.Price.String())
		assert.Empty(t, repo.UpdatePriceCalls)
		assert.Empty(t, rec.Events())
	})

	t.Run("provider timeout leaves local price unchanged", func(t *testing.T) {
		svc, sim, repo, p, _ := newPriceFixture(t)
		sim.FailOn("GetProduct", "p-1", apperr.Timeout())

		_, err := svc.SyncPrice(ctx, PriceChange{ProductID: p.ID, Price: decimal.RequireFromString("30")})
		assert.Equal(t, 504, apperr.HTTPStatus(err))
		assert.Empty(t, repo.UpdatePriceCalls)
	})

	t.Run("explicit provider ids override linkage", func(t *testing.T) {
		svc, sim, repo, _, _ := newPriceFixture(t)
		local := repo.Seed(&model.Product{Name: "unlinked", Price: decimal.RequireFromString("5")})

		_, err := svc.SyncPrice(ctx, PriceChange{
			ProductID:         local.ID,
			Price:             decimal.RequireFromString("6"),
			ShopID:            testShop,
			ProviderProductID: "p-1",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sim.CallCount("UpdateProduct"))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, _, repo, p, _ := newPriceFixture(t)
		unlinked := repo.Seed(&model.Product{Name: "local"})

		cases := []PriceChange{
			{ProductID: p.ID, Price: decimal.Zero},
			{ProductID: p.ID, Price: decimal.RequireFromString("-1")},
			{ProductID: p.ID, Price: decimal.RequireFromString("1.999")},
			{ProductID: unlinked.ID, Price: decimal.RequireFromString("5")},
		}
		for _, c := range cases {
			_, err := svc.SyncPrice(ctx, c)
			assert.ErrorIs(t, err, apperr.ErrValidation, "price %s", c.Price)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, _, _, _ := newPriceFixture(t)
		_, err := svc.SyncPrice(ctx, PriceChange{ProductID: 404, Price: decimal.RequireFromString("5")})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("local write failure after provider success", func(t *testing.T) {
		svc, _, repo, p, rec := newPriceFixture(t)
		repo.UpdatePriceErr = errors.New("connection reset")

		_, err := svc.SyncPrice(ctx, PriceChange{ProductID: p.ID, Price: decimal.RequireFromString("21")})
		assert.Equal(t, 500, apperr.HTTPStatus(err))
		assert.Empty(t, rec.Events())
	})
}
