package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Simulated approves every charge except payment methods starting with
// "decline" or equal to "pm_card_declined". Charges are deduplicated by
// idempotency key.
type Simulated struct {
	mu      sync.Mutex
	charges map[string]*ChargeResult
	calls   int
	refunds int
	seq     int
	err     error
	logger  *zap.Logger
}

func NewSimulated(logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{charges: make(map[string]*ChargeResult), logger: logger.Named("payment-sim")}
}

func (s *Simulated) Name() string { return "simulated" }

// FailWith makes subsequent charges return err as a transport failure. Pass
// nil to clear.
func (s *Simulated) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Charges is the number of distinct charges processed.
func (s *Simulated) Charges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Refunds is the number of refunds issued.
func (s *Simulated) Refunds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunds
}

func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if req.IdempotencyKey != "" {
		if prev, ok := s.charges[req.IdempotencyKey]; ok {
			cp := *prev
			return &cp, nil
		}
	}

	s.calls++
	s.seq++
	result := &ChargeResult{Reference: fmt.Sprintf("sim_pi_%d", s.seq)}
	method := strings.TrimSpace(req.PaymentMethod)
	switch {
	case method == "" || strings.HasPrefix(method, "decline") || method == "pm_card_declined":
		result.Status = ChargeDeclined
		result.Message = "card declined"
	case !req.Amount.IsPositive():
		result.Status = ChargeDeclined
		result.Message = "amount must be positive"
	default:
		result.Status = ChargeSucceeded
	}
	if req.IdempotencyKey != "" {
		s.charges[req.IdempotencyKey] = result
	}
	s.logger.Debug("simulated charge",
		zap.Int64("order_id", req.OrderID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("status", string(result.Status)))
	cp := *result
	return &cp, nil
}

func (s *Simulated) Refund(ctx context.Context, reference string, amount decimal.Decimal, idempotencyKey string) error {
	if reference == "" {
		return errors.New("simulated: payment reference is required")
	}
	s.mu.Lock()
	s.refunds++
	s.mu.Unlock()
	s.logger.Debug("simulated refund", zap.String("reference", reference), zap.String("amount", amount.StringFixed(2)))
	return nil
}
