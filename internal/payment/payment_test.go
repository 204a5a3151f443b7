package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type fakeIntents struct {
	params *stripe.PaymentIntentParams
	intent *stripe.PaymentIntent
	err    error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.params = params
	return f.intent, f.err
}

type fakeRefunds struct {
	params *stripe.RefundParams
}

func (f *fakeRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = params
	return &stripe.Refund{ID: "re_1"}, nil
}

func newTestStripe(t *testing.T, intents *fakeIntents) (*Stripe, *fakeRefunds) {
	t.Helper()
	refunds := &fakeRefunds{}
	s, err := NewStripe(StripeConfig{Intents: intents, Refunds: refunds, AccountID: "acct_1"}, nil)
	require.NoError(t, err)
	return s, refunds
}

func chargeRequest() ChargeRequest {
	return ChargeRequest{
		OrderID:        42,
		Amount:         decimal.RequireFromString("25.99"),
		Currency:       "USD",
		PaymentMethod:  "pm_card_visa",
		IdempotencyKey: "order-42-payment",
		Email:          "buyer@example.com",
	}
}

func TestNewStripe_RequiresKey(t *testing.T) {
	_, err := NewStripe(StripeConfig{}, nil)
	assert.Error(t, err)
}

func TestStripe_ChargeSucceeded(t *testing.T) {
	intents := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}}
	s, _ := newTestStripe(t, intents)

	res, err := s.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, ChargeSucceeded, res.Status)
	assert.Equal(t, "pi_1", res.Reference)

	require.NotNil(t, intents.params)
	assert.Equal(t, int64(2599), *intents.params.Amount)
	assert.Equal(t, "usd", *intents.params.Currency)
	assert.True(t, *intents.params.Confirm)
	assert.Equal(t, "order-42-payment", *intents.params.IdempotencyKey)
	assert.Equal(t, "acct_1", *intents.params.StripeAccount)
	assert.Equal(t, "42", intents.params.Metadata["order_id"])
}

func TestStripe_CardErrorIsDecline(t *testing.T) {
	intents := &fakeIntents{err: &stripe.Error{
		Type:          stripe.ErrorTypeCard,
		Code:          stripe.ErrorCodeCardDeclined,
		Msg:           "Your card was declined.",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_2"},
	}}
	s, _ := newTestStripe(t, intents)

	res, err := s.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, ChargeDeclined, res.Status)
	assert.Equal(t, "pi_2", res.Reference)
	assert.Equal(t, "Your card was declined.", res.Message)
}

func TestStripe_TransportErrorSurfaces(t *testing.T) {
	intents := &fakeIntents{err: errors.New("connection reset")}
	s, _ := newTestStripe(t, intents)

	_, err := s.Charge(context.Background(), chargeRequest())
	assert.Error(t, err)
}

func TestStripe_PendingStatus(t *testing.T) {
	intents := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusRequiresAction}}
	s, _ := newTestStripe(t, intents)

	res, err := s.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, ChargePending, res.Status)
}

func TestStripe_Refund(t *testing.T) {
	s, refunds := newTestStripe(t, &fakeIntents{})

	require.NoError(t, s.Refund(context.Background(), "pi_1", decimal.RequireFromString("5.00"), "order-1-refund"))
	assert.Equal(t, "pi_1", *refunds.params.PaymentIntent)
	assert.Equal(t, int64(500), *refunds.params.Amount)
}

func TestSimulated_Charge(t *testing.T) {
	sim := NewSimulated(nil)

	res, err := sim.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, ChargeSucceeded, res.Status)

	again, err := sim.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, res.Reference, again.Reference)
	assert.Equal(t, 1, sim.Charges())

	req := chargeRequest()
	req.IdempotencyKey = "order-43-payment"
	req.PaymentMethod = "pm_card_declined"
	res, err = sim.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ChargeDeclined, res.Status)
}

func TestSimulated_FailWith(t *testing.T) {
	sim := NewSimulated(nil)
	sim.FailWith(errors.New("gateway unavailable"))

	_, err := sim.Charge(context.Background(), chargeRequest())
	assert.Error(t, err)
	assert.Equal(t, 0, sim.Charges())
}
