package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/infrastructure/store/mocks"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/payment"
	"github.com/example/pod-storefront/internal/provider"
)

const testShop = "shop-1"

type fixture struct {
	svc      *Service
	orders   *mocks.MockOrderRepository
	products *mocks.MockProductRepository
	sim      *provider.Simulated
	payments *payment.Simulated
	events   *events.Recorder
	tee      *model.Product
	mug      *model.Product
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		orders:   mocks.NewMockOrderRepository(),
		products: mocks.NewMockProductRepository(),
		sim:      provider.NewSimulated(nil),
		payments: payment.NewSimulated(nil),
		events:   &events.Recorder{},
	}
	f.tee = f.products.Seed(&model.Product{
		ProviderProductID: "p-tee",
		ProviderShopID:    testShop,
		Name:              "Tee",
		Price:             decimal.RequireFromString("19.99"),
		ImageURL:          "https://img/tee.png",
		ProviderData:      []byte(`{"id":"p-tee","variants":[{"id":11,"title":"M","price":1999,"is_enabled":true}]}`),
	})
	f.mug = f.products.Seed(&model.Product{
		ProviderProductID: "p-mug",
		ProviderShopID:    testShop,
		Name:              "Mug",
		Price:             decimal.RequireFromString("12.50"),
		ProviderData:      []byte(`{"id":"p-mug","variants":[{"id":21,"title":"11oz","price":1250,"is_enabled":true}]}`),
	})

	cfg := Config{
		ShopID:           testShop,
		Currency:         "USD",
		TaxRate:          decimal.RequireFromString("0.08"),
		FlatShipping:     decimal.RequireFromString("4.99"),
		SendToProduction: true,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f.svc = NewService(f.orders, f.products, f.sim, f.payments, cfg, WithPublisher(f.events))
	return f
}

func address() model.Address {
	return model.Address{
		FirstName: "Ada", LastName: "Lovelace", Country: "GB",
		Address1: "1 Analytical Way", City: "London", Zip: "N1 7AA",
	}
}

func (f *fixture) input(items ...ItemInput) CreateInput {
	if len(items) == 0 {
		items = []ItemInput{{ProductID: f.tee.ID, Quantity: 2}, {ProductID: f.mug.ID, Quantity: 1}}
	}
	return CreateInput{
		Customer:        model.Customer{Name: "Ada Lovelace", Email: "ada@example.com"},
		ShippingAddress: address(),
		Items:           items,
	}
}

func (f *fixture) paidOrder(t *testing.T) *model.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), f.input())
	require.NoError(t, err)
	o, err = f.svc.ProcessPayment(context.Background(), o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPaymentCompleted, o.Status)
	return o
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("computes totals from snapshots", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		assert.Equal(t, model.OrderStatusCreated, o.Status)
		assert.Equal(t, model.PaymentStatusUnpaid, o.PaymentStatus)
		assert.NotEmpty(t, o.ExternalID)
		assert.Equal(t, testShop, o.ProviderShopID)
		assert.Equal(t, o.ShippingAddress, o.BillingAddress)

		// 2 x 19.99 + 12.50
		assert.Equal(t, "52.48", o.Subtotal.StringFixed(2))
		// provider quote for 3 units: 4.00 + 2 x 1.00
		assert.Equal(t, "6.00", o.Shipping.StringFixed(2))
		assert.Equal(t, "4.20", o.Tax.StringFixed(2))
		assert.Equal(t, "62.68", o.Total.StringFixed(2))
		assert.True(t, Consistent(o))

		require.Len(t, o.Items, 2)
		assert.Equal(t, int64(11), o.Items[0].ProviderVariantID)
		assert.Equal(t, "M", o.Items[0].Size)
		assert.Equal(t, "p-mug", o.Items[1].ProviderProductID)

		require.Len(t, f.events.OfType(events.OrderCreated), 1)
	})

	t.Run("snapshot is unaffected by later catalog edits", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		require.NoError(t, f.products.UpdatePrice(ctx, f.tee.ID, decimal.RequireFromString("99")))
		stored, err := f.svc.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "19.99", stored.Items[0].UnitPrice.StringFixed(2))
		assert.True(t, stored.Total.Equal(o.Total))
		assert.True(t, Consistent(stored))
	})

	t.Run("flat shipping without provider", func(t *testing.T) {
		f := newFixture(t)
		f.sim.Configured = false
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)
		assert.Equal(t, "4.99", o.Shipping.StringFixed(2))
		assert.True(t, Consistent(o))
	})

	t.Run("explicit billing address", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		billing := address()
		billing.City = "Cambridge"
		in.BillingAddress = &billing
		o, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "Cambridge", o.BillingAddress.City)
		assert.Equal(t, "London", o.ShippingAddress.City)
	})

	t.Run("quantity zero persists nothing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.input(ItemInput{ProductID: f.tee.ID, Quantity: 0}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, 0, f.orders.CreateCalls)
		assert.Equal(t, 0, f.orders.Count())
	})

	t.Run("rejects unknown and inactive products", func(t *testing.T) {
		f := newFixture(t)
		hidden := f.products.Seed(&model.Product{Name: "Hidden", Status: model.ProductStatusInactive})

		_, err := f.svc.Create(ctx, f.input(ItemInput{ProductID: 999, Quantity: 1}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
		_, err = f.svc.Create(ctx, f.input(ItemInput{ProductID: f.tee.ID, Quantity: 1}, ItemInput{ProductID: hidden.ID, Quantity: 1}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, 0, f.orders.Count())
	})

	t.Run("rejects empty order and bad contact", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.Items = nil
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrEmptyOrder)

		in = f.input()
		in.Customer.Email = "not-an-email"
		_, err = f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing customer and address report nested fields", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.Customer = model.Customer{}
		in.ShippingAddress = model.Address{}

		_, err := f.svc.Create(ctx, in)
		require.ErrorIs(t, err, apperr.ErrValidation)
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Fields, "customer.name")
		assert.Contains(t, appErr.Fields, "customer.email")
		assert.Contains(t, appErr.Fields, "shipping_address.first_name")
		assert.Contains(t, appErr.Fields, "shipping_address.country")
		assert.Equal(t, 0, f.orders.Count())
	})

	t.Run("provider shipping failure persists nothing", func(t *testing.T) {
		f := newFixture(t)
		f.sim.FailOn("CalculateShipping", "", apperr.Timeout())
		_, err := f.svc.Create(ctx, f.input())
		assert.Equal(t, 504, apperr.HTTPStatus(err))
		assert.Equal(t, 0, f.orders.Count())
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t)
		f.orders.CreateErr = errors.New("tx aborted")
		_, err := f.svc.Create(ctx, f.input())
		assert.Equal(t, 500, apperr.HTTPStatus(err))
		assert.Empty(t, f.events.Events())
	})
}

func TestService_CalculateShipping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cost, err := f.svc.CalculateShipping(ctx, "", ShippingDraft{
		Items:   []ItemInput{{ProductID: f.tee.ID, Quantity: 1}},
		Address: address(),
	})
	require.NoError(t, err)
	assert.Equal(t, "4.00", cost.Amount.StringFixed(2))
	assert.Equal(t, 0, f.orders.Count())

	o, err := f.svc.Create(ctx, f.input())
	require.NoError(t, err)
	quote, err := f.svc.QuoteShipping(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, quote.Amount.Equal(o.Shipping))

	unlinked := f.products.Seed(&model.Product{Name: "Local"})
	_, err = f.svc.CalculateShipping(ctx, testShop, ShippingDraft{
		Items:   []ItemInput{{ProductID: unlinked.ID, Quantity: 1}},
		Address: address(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_ProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("success is idempotent", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		paid, err := f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentCompleted, paid.Status)
		assert.Equal(t, model.PaymentStatusCompleted, paid.PaymentStatus)
		assert.NotEmpty(t, paid.PaymentReference)

		again, err := f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		require.NoError(t, err)
		assert.Equal(t, paid.PaymentReference, again.PaymentReference)
		assert.Equal(t, 1, f.payments.Charges())
		assert.Len(t, f.events.OfType(events.OrderPaymentCompleted), 1)
	})

	t.Run("decline moves to payment failed", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		failed, err := f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_declined"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentFailed, failed.Status)
		assert.Equal(t, model.PaymentStatusFailed, failed.PaymentStatus)
		assert.Len(t, f.events.OfType(events.OrderPaymentFailed), 1)

		_, err = f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("gateway error leaves order pending and retry succeeds", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		f.payments.FailWith(errors.New("connection reset"))
		_, err = f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		assert.Equal(t, 502, apperr.HTTPStatus(err))
		pending, err := f.svc.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentPending, pending.Status)

		f.payments.FailWith(nil)
		paid, err := f.svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentCompleted, paid.Status)
	})

	t.Run("retry with another payment method uses a new idempotency key", func(t *testing.T) {
		f := newFixture(t)
		gateway := &keyRecordingGateway{Simulated: f.payments}
		svc := NewService(f.orders, f.products, f.sim, gateway, f.svc.cfg)
		o, err := svc.Create(ctx, f.input())
		require.NoError(t, err)

		f.payments.FailWith(errors.New("card network unavailable"))
		_, err = svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_visa"})
		require.Error(t, err)

		f.payments.FailWith(nil)
		paid, err := svc.ProcessPayment(ctx, o.ID, PaymentInput{PaymentMethod: "pm_card_mastercard"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentCompleted, paid.Status)

		require.Len(t, gateway.keys, 2)
		assert.NotEqual(t, gateway.keys[0], gateway.keys[1])
		assert.Equal(t, paymentKey(o.ID, "pm_card_visa"), gateway.keys[0])
		assert.Equal(t, paymentKey(o.ID, "pm_card_mastercard"), gateway.keys[1])
		assert.Equal(t, paymentKey(o.ID, "pm_card_visa"), paymentKey(o.ID, "pm_card_visa"))
	})

	t.Run("validation and missing order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ProcessPayment(ctx, 1, PaymentInput{})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		_, err = f.svc.ProcessPayment(ctx, 404, PaymentInput{PaymentMethod: "pm_card_visa"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

type keyRecordingGateway struct {
	*payment.Simulated
	keys []string
}

func (g *keyRecordingGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.keys = append(g.keys, req.IdempotencyKey)
	return g.Simulated.Charge(ctx, req)
}

func TestService_SubmitForProduction(t *testing.T) {
	ctx := context.Background()

	t.Run("submits once", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		first, err := f.svc.SubmitForProduction(ctx, "", o.ID)
		require.NoError(t, err)
		require.NotNil(t, first.ProviderOrderID)
		assert.Equal(t, model.OrderStatusSubmittedToProduction, first.Status)
		assert.True(t, first.ProductionRequested)

		second, err := f.svc.SubmitForProduction(ctx, "", o.ID)
		require.NoError(t, err)
		assert.Equal(t, *first.ProviderOrderID, *second.ProviderOrderID)

		assert.Equal(t, 1, f.sim.CallCount("CreateOrder"))
		assert.Equal(t, 1, f.sim.CallCount("SubmitOrderForProduction"))
		assert.Len(t, f.events.OfType(events.OrderSubmitted), 1)

		remote, ok := f.sim.OrderByID(*first.ProviderOrderID)
		require.True(t, ok)
		assert.Equal(t, o.ExternalID, remote.ExternalID)
	})

	t.Run("concurrent submits converge on one provider order", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		const callers = 16
		var wg sync.WaitGroup
		ids := make(chan string, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
				if err != nil {
					assert.ErrorIs(t, err, apperr.ErrConflict)
					return
				}
				ids <- *got.ProviderOrderID
			}()
		}
		wg.Wait()
		close(ids)

		assert.Equal(t, 1, f.sim.CallCount("CreateOrder"))
		stored, err := f.svc.Get(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ProviderOrderID)
		for id := range ids {
			assert.Equal(t, *stored.ProviderOrderID, id)
		}
	})

	t.Run("requires completed payment", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		_, err = f.svc.SubmitForProduction(ctx, testShop, o.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, 0, f.sim.CallCount("CreateOrder"))
	})

	t.Run("provider failure releases the claim", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)
		f.sim.FailOn("CreateOrder", o.ExternalID, apperr.NewProviderError(503, "maintenance"))

		_, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		assert.ErrorIs(t, err, apperr.ErrProvider)
		stored, err := f.svc.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentCompleted, stored.Status)
		assert.Empty(t, stored.SubmissionToken)
		assert.Nil(t, stored.ProviderOrderID)

		f.sim.FailOn("CreateOrder", o.ExternalID, nil)
		retried, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		assert.NotNil(t, retried.ProviderOrderID)
	})

	t.Run("failed hand-off is retried without a new order", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)
		f.sim.FailOn("SubmitOrderForProduction", "sim-1001", apperr.Timeout())

		first, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		require.Equal(t, "sim-1001", *first.ProviderOrderID)
		assert.False(t, first.ProductionRequested)

		f.sim.FailOn("SubmitOrderForProduction", "sim-1001", nil)
		second, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		assert.True(t, second.ProductionRequested)
		assert.Equal(t, 1, f.sim.CallCount("CreateOrder"))
		assert.Equal(t, 2, f.sim.CallCount("SubmitOrderForProduction"))
	})

	t.Run("hand-off disabled", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.SendToProduction = false })
		o := f.paidOrder(t)
		submitted, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		assert.False(t, submitted.ProductionRequested)
		assert.Equal(t, 0, f.sim.CallCount("SubmitOrderForProduction"))
	})

	t.Run("claim held by another submitter", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)
		claimed, err := f.orders.ClaimSubmission(ctx, o.ID, "other")
		require.NoError(t, err)
		require.True(t, claimed)

		_, err = f.svc.SubmitForProduction(ctx, testShop, o.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, 0, f.sim.CallCount("CreateOrder"))

		released, err := f.svc.ReleaseSubmission(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, released)

		_, err = f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		_, err = f.svc.ReleaseSubmission(ctx, o.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestService_GetStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.paidOrder(t)
	submitted, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
	require.NoError(t, err)
	providerID := *submitted.ProviderOrderID

	local, err := f.svc.GetStatus(ctx, o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSubmittedToProduction, local.Status)
	assert.Equal(t, 0, f.sim.CallCount("GetOrder"))

	inProduction, err := f.svc.GetStatus(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProduction, inProduction.Status)
	require.NotNil(t, inProduction.ProviderStatus)
	assert.Equal(t, "sending-to-production", *inProduction.ProviderStatus)

	f.sim.SetOrderStatus(providerID, "fulfilled", provider.Shipment{Carrier: "usps", Number: "9400"})
	shipped, err := f.svc.GetStatus(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, "9400", *shipped.TrackingNumber)
	assert.Len(t, f.events.OfType(events.OrderStatusChanged), 2)

	// Shipped is terminal; no further polling.
	calls := f.sim.CallCount("GetOrder")
	_, err = f.svc.GetStatus(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, calls, f.sim.CallCount("GetOrder"))
}

func TestService_GetStatus_RefreshFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.paidOrder(t)
	submitted, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
	require.NoError(t, err)
	f.sim.FailOn("GetOrder", *submitted.ProviderOrderID, apperr.Timeout())

	got, err := f.svc.GetStatus(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSubmittedToProduction, got.Status)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("before payment", func(t *testing.T) {
		f := newFixture(t)
		o, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, o.ID, "customer request")
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, 0, f.payments.Refunds())

		again, err := f.svc.Cancel(ctx, o.ID, "again")
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, again.Status)
		assert.Len(t, f.events.OfType(events.OrderCancelled), 1)
	})

	t.Run("after payment refunds", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		cancelled, err := f.svc.Cancel(ctx, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRefunded, cancelled.PaymentStatus)
		assert.Equal(t, 1, f.payments.Refunds())

		_, err = f.svc.SubmitForProduction(ctx, testShop, o.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("after submission is rejected", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)
		_, err := f.svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, o.ID, "")
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

// pausingOrders blocks the first GetByID after pause is armed until resume
// is closed.
type pausingOrders struct {
	*mocks.MockOrderRepository
	mu     sync.Mutex
	paused chan struct{}
	resume chan struct{}
}

func (p *pausingOrders) arm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = make(chan struct{})
	p.resume = make(chan struct{})
}

func (p *pausingOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := p.MockOrderRepository.GetByID(ctx, id)
	p.mu.Lock()
	paused, resume := p.paused, p.resume
	p.paused = nil
	p.mu.Unlock()
	if paused != nil {
		close(paused)
		<-resume
	}
	return o, err
}

type createHookClient struct {
	*provider.Simulated
	beforeCreate func()
}

func (c *createHookClient) CreateOrder(ctx context.Context, shopID string, in provider.OrderInput) (*provider.Order, error) {
	if c.beforeCreate != nil {
		c.beforeCreate()
	}
	return c.Simulated.CreateOrder(ctx, shopID, in)
}

func TestService_CancelDuringSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel loses to a held submission claim", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		orders := &pausingOrders{MockOrderRepository: f.orders}
		type result struct {
			order *model.Order
			err   error
		}
		cancelled := make(chan result, 1)
		client := &createHookClient{Simulated: f.sim}
		var cancelRes result
		client.beforeCreate = func() {
			// The claim is held: let the stalled cancel finish now.
			close(orders.resume)
			cancelRes = <-cancelled
		}
		svc := NewService(orders, f.products, client, f.payments, f.svc.cfg, WithPublisher(f.events))

		orders.arm()
		paused := orders.paused
		go func() {
			c, err := svc.Cancel(ctx, o.ID, "changed my mind")
			cancelled <- result{c, err}
		}()
		<-paused

		submitted, err := svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusSubmittedToProduction, submitted.Status)

		assert.Nil(t, cancelRes.order)
		assert.ErrorIs(t, cancelRes.err, apperr.ErrConflict)

		final, err := f.orders.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusSubmittedToProduction, final.Status)
		assert.Equal(t, model.PaymentStatusCompleted, final.PaymentStatus)
		assert.Equal(t, 0, f.payments.Refunds())
		assert.Equal(t, 1, f.sim.CallCount("CreateOrder"))
		assert.Empty(t, f.events.OfType(events.OrderCancelled))
	})

	t.Run("cancel after submission completed under it", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		orders := &pausingOrders{MockOrderRepository: f.orders}
		svc := NewService(orders, f.products, f.sim, f.payments, f.svc.cfg)

		orders.arm()
		paused, resume := orders.paused, orders.resume
		errs := make(chan error, 1)
		go func() {
			_, err := svc.Cancel(ctx, o.ID, "")
			errs <- err
		}()
		<-paused
		_, err := svc.SubmitForProduction(ctx, testShop, o.ID)
		require.NoError(t, err)
		close(resume)

		assert.ErrorIs(t, <-errs, apperr.ErrConflict)
		assert.Equal(t, 0, f.payments.Refunds())
	})

	t.Run("completion refused once the order left payment_completed", func(t *testing.T) {
		f := newFixture(t)
		o := f.paidOrder(t)

		ok, err := f.orders.ClaimSubmission(ctx, o.ID, "tok")
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = f.orders.Transition(ctx, o.ID, []model.OrderStatus{model.OrderStatusPaymentCompleted},
			model.OrderStatusCancelled, store.OrderPatch{})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.orders.CompleteSubmission(ctx, o.ID, "tok", testShop, "prov-1")
		require.NoError(t, err)
		assert.False(t, ok)

		final, err := f.orders.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, final.Status)
		assert.Nil(t, final.ProviderOrderID)
	})
}

func TestService_GetByReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o, err := f.svc.Create(ctx, f.input())
	require.NoError(t, err)

	found, err := f.svc.GetByReference(ctx, o.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	for _, ref := range []string{"", "1", "not-a-reference", "5f0c6a8e-8f3b-4c57-9a43-0b6a2f9d1c11"} {
		_, err := f.svc.GetByReference(ctx, ref)
		assert.ErrorIs(t, err, apperr.ErrNotFound, ref)
	}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, f.input())
		require.NoError(t, err)
	}
	orders, err := f.svc.List(ctx, model.OrderFilter{Email: "ADA@example.com", Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Greater(t, orders[0].ID, orders[1].ID)
}
