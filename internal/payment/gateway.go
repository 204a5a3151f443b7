// Package payment charges customers for orders. Stripe talks to the real
// processor; Simulated is selected by configuration for local runs and tests.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the processor's verdict on a charge.
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeDeclined  ChargeStatus = "declined"
	// ChargePending means the processor needs more time or customer action.
	ChargePending ChargeStatus = "pending"
)

// ChargeRequest describes one payment attempt. IdempotencyKey must be stable
// for the order so a retried request never charges twice.
type ChargeRequest struct {
	OrderID        int64
	Amount         decimal.Decimal
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Email          string
}

// ChargeResult is returned for every charge the processor answered, including
// declines. Transport failures are returned as errors instead.
type ChargeResult struct {
	Status    ChargeStatus
	Reference string
	Message   string
}

// Gateway is a payment processor.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal, idempotencyKey string) error
}
