package order

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/metrics"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/payment"
	"github.com/example/pod-storefront/internal/provider"
	"github.com/example/pod-storefront/internal/validate"
)

var (
	ErrOrderNotFound = apperr.NotFound("order not found")
	ErrEmptyOrder    = apperr.Validation("order must have at least one item")
)

// Config holds the pricing and fulfillment settings of new orders.
type Config struct {
	ShopID           string
	Currency         string
	TaxRate          decimal.Decimal
	FlatShipping     decimal.Decimal
	ShippingMethod   int
	SendToProduction bool
}

// Service owns the order state machine.
type Service struct {
	orders    store.OrderRepository
	products  store.ProductRepository
	client    provider.Client
	payments  payment.Gateway
	cfg       Config
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(orders store.OrderRepository, products store.ProductRepository, client provider.Client, payments payment.Gateway, cfg Config, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.ShippingMethod == 0 {
		cfg.ShippingMethod = 1
	}
	s := &Service{
		orders:    orders,
		products:  products,
		client:    client,
		payments:  payments,
		cfg:       cfg,
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("orders")
	return s
}

// ItemInput requests a quantity of one product. VariantID and Size are
// optional; the variant defaults to the product's price variant.
type ItemInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=1000"`
	VariantID int64  `json:"variant_id" validate:"omitempty,gt=0"`
	Size      string `json:"size" validate:"max=50"`
}

// CreateInput is a checkout request. The billing address defaults to the
// shipping address.
type CreateInput struct {
	Customer        model.Customer `json:"customer"`
	ShippingAddress model.Address  `json:"shipping_address"`
	BillingAddress  *model.Address `json:"billing_address"`
	Items           []ItemInput    `json:"items" validate:"required,min=1,dive"`
	ShopID          string         `json:"shop_id"`
}

// Create validates the request, snapshots every item from the catalog,
// computes the amounts and stores the order in state created. Nothing is
// persisted when any item is invalid.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	items, err := s.snapshot(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	shopID := in.ShopID
	if shopID == "" {
		shopID = s.cfg.ShopID
	}
	shipping, err := s.shippingFor(ctx, shopID, items, in.ShippingAddress)
	if err != nil {
		return nil, err
	}

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}
	totals := ComputeTotals(items, shipping, s.cfg.TaxRate)
	o := &model.Order{
		ExternalID:      uuid.NewString(),
		Customer:        in.Customer,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Currency:        s.cfg.Currency,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          model.OrderStatusCreated,
		PaymentStatus:   model.PaymentStatusUnpaid,
		ProviderShopID:  shopID,
		Items:           items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, apperr.Internal("create order", err)
	}

	s.metrics.OrderTransition(string(o.Status))
	s.emit(ctx, events.OrderCreated, o, "", "")
	s.logger.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)))
	return o, nil
}

// snapshot copies the catalog data of each requested product. Every product
// must exist and be active.
func (s *Service) snapshot(ctx context.Context, inputs []ItemInput) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		p, err := s.products.GetByID(ctx, in.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Validation("items[%d]: product %d does not exist", i, in.ProductID)
		}
		if err != nil {
			return nil, apperr.Internal("load product", err)
		}
		if !p.IsActive() {
			return nil, apperr.Validation("items[%d]: product %d is not available", i, in.ProductID)
		}

		variantID, size := in.VariantID, strings.TrimSpace(in.Size)
		if v, ok := priceVariant(p); ok {
			if variantID == 0 {
				variantID = v.ID
			}
			if size == "" && variantID == v.ID {
				size = v.Title
			}
		}

		items = append(items, model.OrderItem{
			ProductID:         p.ID,
			ProviderProductID: p.ProviderProductID,
			ProviderVariantID: variantID,
			Name:              p.Name,
			Size:              size,
			UnitPrice:         p.Price,
			Quantity:          in.Quantity,
			ImageURL:          p.ImageURL,
		})
	}
	return items, nil
}

// priceVariant reads the price variant from the stored provider payload.
func priceVariant(p *model.Product) (provider.Variant, bool) {
	if len(p.ProviderData) == 0 {
		return provider.Variant{}, false
	}
	var remote provider.Product
	if err := json.Unmarshal(p.ProviderData, &remote); err != nil {
		return provider.Variant{}, false
	}
	return remote.PriceVariant()
}

// shippingFor quotes shipping from the provider when a shop is known and the
// provider is configured, and falls back to the flat rate otherwise.
func (s *Service) shippingFor(ctx context.Context, shopID string, items []model.OrderItem, to model.Address) (decimal.Decimal, error) {
	if shopID == "" || s.client.Status() != provider.StatusConfigured {
		return s.cfg.FlatShipping, nil
	}
	lines, err := lineItems(items)
	if err != nil {
		s.logger.Debug("using flat shipping for unlinked items", zap.Error(err))
		return s.cfg.FlatShipping, nil
	}
	cost, err := s.client.CalculateShipping(ctx, shopID, provider.ShippingInput{LineItems: lines, AddressTo: to})
	if errors.Is(err, apperr.ErrNotConfigured) {
		return s.cfg.FlatShipping, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return cost.Amount, nil
}

// lineItems converts snapshots into provider line items. Every item must be
// linked to a provider product and variant.
func lineItems(items []model.OrderItem) ([]provider.LineItem, error) {
	lines := make([]provider.LineItem, len(items))
	for i, item := range items {
		if item.ProviderProductID == "" || item.ProviderVariantID == 0 {
			return nil, apperr.Validation("item %q is not linked to a provider variant", item.Name)
		}
		lines[i] = provider.LineItem{
			ProductID: item.ProviderProductID,
			VariantID: item.ProviderVariantID,
			Quantity:  item.Quantity,
		}
	}
	return lines, nil
}

// ShippingDraft is an order that has not been placed yet.
type ShippingDraft struct {
	Items   []ItemInput   `json:"items" validate:"required,min=1,dive"`
	Address model.Address `json:"address_to" validate:"required"`
}

// CalculateShipping asks the provider for a shipping quote. It reads the
// catalog but writes nothing.
func (s *Service) CalculateShipping(ctx context.Context, shopID string, draft ShippingDraft) (*provider.ShippingCost, error) {
	if shopID == "" {
		shopID = s.cfg.ShopID
	}
	if shopID == "" {
		return nil, apperr.Validation("shop id is required")
	}
	if err := validate.Struct(draft); err != nil {
		return nil, err
	}
	items, err := s.snapshot(ctx, draft.Items)
	if err != nil {
		return nil, err
	}
	lines, err := lineItems(items)
	if err != nil {
		return nil, err
	}
	return s.client.CalculateShipping(ctx, shopID, provider.ShippingInput{LineItems: lines, AddressTo: draft.Address})
}

// QuoteShipping re-quotes shipping for a stored order without changing it.
func (s *Service) QuoteShipping(ctx context.Context, id int64) (*provider.ShippingCost, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	shopID := o.ProviderShopID
	if shopID == "" {
		shopID = s.cfg.ShopID
	}
	if shopID == "" {
		return nil, apperr.Validation("shop id is required")
	}
	lines, err := lineItems(o.Items)
	if err != nil {
		return nil, err
	}
	return s.client.CalculateShipping(ctx, shopID, provider.ShippingInput{LineItems: lines, AddressTo: o.ShippingAddress})
}

// Get returns a stored order.
func (s *Service) Get(ctx context.Context, id int64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get order", err)
	}
	return o, nil
}

// GetByReference returns the order carrying the customer-facing reference.
// Anything that is not a well-formed reference is reported as not found.
func (s *Service) GetByReference(ctx context.Context, ref string) (*model.Order, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := s.orders.GetByExternalID(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get order", err)
	}
	return o, nil
}

// List returns orders, newest first.
func (s *Service) List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	return orders, nil
}

// PaymentInput carries the processor's payment method token.
type PaymentInput struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=255"`
}

// ProcessPayment charges the order total. It is idempotent: once payment is
// completed further calls return the order unchanged, and every attempt with
// the same payment method uses the same processor idempotency key so a retry
// cannot charge twice. A
// decline moves the order to payment_failed and is not an error.
func (s *Service) ProcessPayment(ctx context.Context, id int64, in PaymentInput) (*model.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == model.PaymentStatusCompleted {
		return o, nil
	}

	from := []model.OrderStatus{model.OrderStatusCreated, model.OrderStatusPaymentPending}
	pending := model.PaymentStatusPending
	ok, err := s.orders.Transition(ctx, id, from, model.OrderStatusPaymentPending, store.OrderPatch{PaymentStatus: &pending})
	if err != nil {
		return nil, apperr.Internal("mark payment pending", err)
	}
	if !ok {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus == model.PaymentStatusCompleted {
			return current, nil
		}
		return nil, apperr.Conflict("order %d cannot be paid from status %s", id, current.Status)
	}
	if o.Status != model.OrderStatusPaymentPending {
		s.metrics.OrderTransition(string(model.OrderStatusPaymentPending))
	}

	result, err := s.payments.Charge(ctx, payment.ChargeRequest{
		OrderID:        o.ID,
		Amount:         o.Total,
		Currency:       o.Currency,
		PaymentMethod:  in.PaymentMethod,
		IdempotencyKey: paymentKey(o.ID, in.PaymentMethod),
		Email:          o.Customer.Email,
	})
	if err != nil {
		s.logger.Warn("charge failed, order left pending", zap.Int64("order_id", id), zap.Error(err))
		return nil, apperr.Upstream("payment processor error", err)
	}

	ref := result.Reference
	var (
		target        model.OrderStatus
		paymentStatus model.PaymentStatus
		eventType     events.Type
	)
	switch result.Status {
	case payment.ChargeSucceeded:
		target, paymentStatus, eventType = model.OrderStatusPaymentCompleted, model.PaymentStatusCompleted, events.OrderPaymentCompleted
	case payment.ChargeDeclined:
		target, paymentStatus, eventType = model.OrderStatusPaymentFailed, model.PaymentStatusFailed, events.OrderPaymentFailed
	default:
		target, paymentStatus = model.OrderStatusPaymentPending, model.PaymentStatusPending
	}

	ok, err = s.orders.Transition(ctx, id, []model.OrderStatus{model.OrderStatusPaymentPending}, target,
		store.OrderPatch{PaymentStatus: &paymentStatus, PaymentReference: &ref})
	if err != nil {
		s.logger.Error("charge recorded by processor but not stored",
			zap.Int64("order_id", id),
			zap.String("reference", ref),
			zap.Error(err))
		return nil, apperr.Internal("store payment result", err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return updated, nil
	}
	if eventType != "" {
		s.metrics.OrderTransition(string(target))
		s.emit(ctx, eventType, updated, string(model.OrderStatusPaymentPending), result.Message)
	}
	s.logger.Info("payment processed",
		zap.Int64("order_id", id),
		zap.String("result", string(result.Status)),
		zap.String("reference", ref))
	return updated, nil
}

// paymentKey is stable for one order and payment method, so a retry with the
// same method replays the original charge while a new method starts a new
// one.
func paymentKey(id int64, method string) string {
	return "order-" + strconv.FormatInt(id, 10) + "-payment-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(method)).String()
}

// SubmitForProduction creates the provider order for a paid order. It is
// at-most-once: a claim token is taken with a conditional update before the
// provider is called, and the provider order id is stored only while that
// claim is held. Calling it again after the provider order exists returns
// the stored order without creating another one.
func (s *Service) SubmitForProduction(ctx context.Context, shopID string, id int64) (*model.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsSubmitted() {
		return s.handOff(ctx, o), nil
	}
	if o.Status != model.OrderStatusPaymentCompleted {
		return nil, apperr.Conflict("order %d cannot be submitted from status %s", id, o.Status)
	}

	if shopID == "" {
		shopID = o.ProviderShopID
	}
	if shopID == "" {
		shopID = s.cfg.ShopID
	}
	if shopID == "" {
		return nil, apperr.Validation("shop id is required")
	}
	lines, err := lineItems(o.Items)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	claimed, err := s.orders.ClaimSubmission(ctx, id, token)
	if err != nil {
		return nil, apperr.Internal("claim submission", err)
	}
	if !claimed {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsSubmitted() {
			return current, nil
		}
		if current.SubmissionToken != "" {
			return nil, apperr.Conflict("submission of order %d is already in progress", id)
		}
		return nil, apperr.Conflict("order %d cannot be submitted from status %s", id, current.Status)
	}

	remote, err := s.client.CreateOrder(ctx, shopID, provider.OrderInput{
		ExternalID:     o.ExternalID,
		Label:          "order-" + strconv.FormatInt(o.ID, 10),
		LineItems:      lines,
		ShippingMethod: s.cfg.ShippingMethod,
		AddressTo:      addressWithContact(o),
	})
	if err != nil {
		if _, relErr := s.orders.ReleaseSubmission(ctx, id, token); relErr != nil {
			s.logger.Error("failed to release submission claim", zap.Int64("order_id", id), zap.Error(relErr))
		}
		s.logger.Warn("provider rejected order", zap.Int64("order_id", id), zap.Error(err))
		return nil, err
	}

	providerID := remote.ID.String()
	stored, err := s.orders.CompleteSubmission(ctx, id, token, shopID, providerID)
	if err != nil || !stored {
		// The claim stays held so no second provider order can be created.
		s.logger.Error("provider order created but not recorded",
			zap.Int64("order_id", id),
			zap.String("provider_order_id", providerID),
			zap.Bool("stored", stored),
			zap.Error(err))
		if err == nil {
			err = errors.New("submission claim lost")
		}
		return nil, apperr.Internal("record provider order "+providerID, err)
	}

	s.metrics.OrderTransition(string(model.OrderStatusSubmittedToProduction))
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderSubmitted, updated, string(model.OrderStatusPaymentCompleted), "")
	s.logger.Info("order submitted",
		zap.Int64("order_id", id),
		zap.String("shop_id", shopID),
		zap.String("provider_order_id", providerID))
	return s.handOff(ctx, updated), nil
}

// handOff asks the provider to start production for a submitted order. It
// only ever targets the stored provider order id, so repeating it cannot
// create another order. Failures are logged and retried by the next submit.
func (s *Service) handOff(ctx context.Context, o *model.Order) *model.Order {
	if !s.cfg.SendToProduction || o.ProductionRequested || !o.IsSubmitted() {
		return o
	}
	if err := s.client.SubmitOrderForProduction(ctx, o.ProviderShopID, *o.ProviderOrderID); err != nil {
		s.logger.Warn("production hand-off failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return o
	}
	if err := s.orders.MarkProductionRequested(ctx, o.ID); err != nil {
		s.logger.Warn("failed to record production hand-off", zap.Int64("order_id", o.ID), zap.Error(err))
		return o
	}
	o.ProductionRequested = true
	return o
}

func addressWithContact(o *model.Order) model.Address {
	a := o.ShippingAddress
	if a.Email == "" {
		a.Email = o.Customer.Email
	}
	if a.Phone == "" {
		a.Phone = o.Customer.Phone
	}
	return a
}

// GetStatus returns the stored order. With refresh set and a provider order
// present it first polls the provider and applies any status progress.
// Polling failures are logged and the stored state is returned.
func (s *Service) GetStatus(ctx context.Context, id int64, refresh bool) (*model.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !refresh || !o.IsSubmitted() || o.Status.IsTerminal() {
		return o, nil
	}

	remote, err := s.client.GetOrder(ctx, o.ProviderShopID, *o.ProviderOrderID)
	if err != nil {
		s.logger.Warn("provider status refresh failed", zap.Int64("order_id", id), zap.Error(err))
		return o, nil
	}

	patch := store.OrderPatch{ProviderStatus: &remote.Status}
	tracking := remote.TrackingNumber()
	if tracking != "" {
		patch.TrackingNumber = &tracking
	}
	target := o.Status
	if mapped, ok := fromProviderStatus(remote.Status, tracking != ""); ok && CanTransition(o.Status, mapped) {
		target = mapped
	}

	unchanged := target == o.Status &&
		o.ProviderStatus != nil && *o.ProviderStatus == remote.Status &&
		(tracking == "" || (o.TrackingNumber != nil && *o.TrackingNumber == tracking))
	if unchanged {
		return o, nil
	}

	ok, err := s.orders.Transition(ctx, id, []model.OrderStatus{o.Status}, target, patch)
	if err != nil {
		s.logger.Warn("failed to store provider status", zap.Int64("order_id", id), zap.Error(err))
		return o, nil
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok && target != o.Status {
		s.metrics.OrderTransition(string(target))
		s.emit(ctx, events.OrderStatusChanged, updated, string(o.Status), "")
		s.logger.Info("order status advanced",
			zap.Int64("order_id", id),
			zap.String("from", string(o.Status)),
			zap.String("to", string(target)))
	}
	return updated, nil
}

// Cancel stops an order that has not reached the provider. The cancel only
// lands while no submission claim is held, so an order being submitted can
// never also be cancelled. A completed payment is refunded; a refund failure
// is logged and leaves the payment status completed for follow-up.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*model.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == model.OrderStatusCancelled {
		return o, nil
	}
	if o.IsSubmitted() || o.SubmissionToken != "" {
		return nil, apperr.Conflict("order %d has been sent to production and cannot be cancelled", id)
	}
	if !CanTransition(o.Status, model.OrderStatusCancelled) {
		return nil, apperr.Conflict("order %d cannot be cancelled from status %s", id, o.Status)
	}

	ok, err := s.orders.CancelUnclaimed(ctx, id, preSubmission)
	if err != nil {
		return nil, apperr.Internal("cancel order", err)
	}
	if !ok {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case current.Status == model.OrderStatusCancelled:
			return current, nil
		case current.IsSubmitted() || current.SubmissionToken != "":
			return nil, apperr.Conflict("order %d has been sent to production and cannot be cancelled", id)
		}
		return nil, apperr.Conflict("order %d cannot be cancelled from status %s", id, current.Status)
	}
	s.metrics.OrderTransition(string(model.OrderStatusCancelled))

	cancelled, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cancelled.PaymentStatus == model.PaymentStatusCompleted && cancelled.PaymentReference != "" {
		key := "order-" + strconv.FormatInt(id, 10) + "-refund"
		if err := s.payments.Refund(ctx, cancelled.PaymentReference, cancelled.Total, key); err != nil {
			s.logger.Error("refund failed for cancelled order",
				zap.Int64("order_id", id),
				zap.String("reference", cancelled.PaymentReference),
				zap.Error(err))
		} else {
			refunded := model.PaymentStatusRefunded
			if _, err := s.orders.Transition(ctx, id, []model.OrderStatus{model.OrderStatusCancelled},
				model.OrderStatusCancelled, store.OrderPatch{PaymentStatus: &refunded}); err != nil {
				s.logger.Error("refund issued but not stored", zap.Int64("order_id", id), zap.Error(err))
			} else {
				cancelled.PaymentStatus = refunded
			}
		}
	}

	s.emit(ctx, events.OrderCancelled, cancelled, string(o.Status), reason)
	s.logger.Info("order cancelled", zap.Int64("order_id", id), zap.String("reason", reason))
	return cancelled, nil
}

// ReleaseSubmission clears a submission claim that never produced a provider
// order, for example after a crash between claim and provider call. It
// reports whether a claim was released.
func (s *Service) ReleaseSubmission(ctx context.Context, id int64) (bool, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if o.IsSubmitted() {
		return false, apperr.Conflict("order %d already has provider order %s", id, *o.ProviderOrderID)
	}
	released, err := s.orders.ReleaseSubmission(ctx, id, "")
	if err != nil {
		return false, apperr.Internal("release submission", err)
	}
	if released {
		s.logger.Warn("submission claim released", zap.Int64("order_id", id))
	}
	return released, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, o *model.Order, previous, reason string) {
	payload := events.OrderPayload{
		OrderID:        o.ID,
		ExternalID:     o.ExternalID,
		Status:         string(o.Status),
		PreviousStatus: previous,
		CustomerName:   o.Customer.Name,
		CustomerEmail:  o.Customer.Email,
		Total:          o.Total,
		Currency:       o.Currency,
		ItemCount:      len(o.Items),
		Reason:         reason,
	}
	if o.ProviderOrderID != nil {
		payload.ProviderOrderID = *o.ProviderOrderID
	}
	if o.TrackingNumber != nil {
		payload.TrackingNumber = *o.TrackingNumber
	}
	events.Emit(ctx, s.publisher, s.logger, t, "order-"+strconv.FormatInt(o.ID, 10), payload)
}
