package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeConfig configures the Stripe gateway. Intents and Refunds replace the
// SDK clients in tests.
type StripeConfig struct {
	SecretKey string
	AccountID string
	Backends  *stripe.Backends
	Intents   stripeIntentAPI
	Refunds   stripeRefundAPI
}

// Stripe charges through PaymentIntents confirmed at creation.
type Stripe struct {
	intents stripeIntentAPI
	refunds stripeRefundAPI
	account string
	logger  *zap.Logger
}

// NewStripe builds the gateway.
func NewStripe(cfg StripeConfig, logger *zap.Logger) (*Stripe, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	intents, refunds := cfg.Intents, cfg.Refunds
	if intents == nil || refunds == nil {
		if key == "" {
			return nil, errors.New("stripe: secret key is required")
		}
		sc := client.New(key, cfg.Backends)
		if intents == nil {
			intents = sc.PaymentIntents
		}
		if refunds == nil {
			refunds = sc.Refunds
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stripe{
		intents: intents,
		refunds: refunds,
		account: strings.TrimSpace(cfg.AccountID),
		logger:  logger.Named("stripe"),
	}, nil
}

func (s *Stripe) Name() string { return "stripe" }

// Charge creates and confirms a PaymentIntent. Card errors are declines, not
// failures.
func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return &ChargeResult{Status: ChargeDeclined, Message: "payment method is required"}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount.Shift(2).Round(0).IntPart()),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if s.account != "" {
		params.SetStripeAccount(s.account)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))

	intent, err := s.intents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			s.logger.Info("payment declined",
				zap.Int64("order_id", req.OrderID),
				zap.String("code", string(serr.Code)),
				zap.String("decline_code", string(serr.DeclineCode)))
			ref := ""
			if serr.PaymentIntent != nil {
				ref = serr.PaymentIntent.ID
			}
			return &ChargeResult{Status: ChargeDeclined, Reference: ref, Message: serr.Msg}, nil
		}
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	result := &ChargeResult{Reference: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Status = ChargeSucceeded
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		result.Status = ChargeDeclined
		result.Message = "payment method was not accepted"
	default:
		result.Status = ChargePending
	}

	s.logger.Info("payment intent confirmed",
		zap.Int64("order_id", req.OrderID),
		zap.String("payment_intent", intent.ID),
		zap.String("status", string(intent.Status)))
	return result, nil
}

func (s *Stripe) Refund(ctx context.Context, reference string, amount decimal.Decimal, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
	}
	if amount.IsPositive() {
		params.Amount = stripe.Int64(amount.Shift(2).Round(0).IntPart())
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	if s.account != "" {
		params.SetStripeAccount(s.account)
	}
	if _, err := s.refunds.New(params); err != nil {
		return fmt.Errorf("stripe: create refund: %w", err)
	}
	return nil
}
