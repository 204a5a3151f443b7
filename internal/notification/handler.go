// Package notification turns order events into customer emails.
package notification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/email"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/model"
)

// Mailer is the part of email.Service the handler uses.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to string, o email.OrderSummary) error
	SendShipped(ctx context.Context, to string, o email.OrderSummary) error
	SendCancelled(ctx context.Context, to string, o email.OrderSummary) error
}

// Handler processes events for sending notifications
type Handler struct {
	mailer Mailer
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{mailer: mailer, logger: logger.Named("notifier")}
}

// HandleEvent sends the email that matches e. Events without a customer
// address and event types with no email are ignored.
func (h *Handler) HandleEvent(ctx context.Context, e events.Event) error {
	var send func(context.Context, string, email.OrderSummary) error
	switch e.Type {
	case events.OrderPaymentCompleted:
		send = h.mailer.SendOrderConfirmation
	case events.OrderCancelled:
		send = h.mailer.SendCancelled
	case events.OrderStatusChanged:
		send = h.mailer.SendShipped
	default:
		return nil
	}

	var p events.OrderPayload
	if err := e.Decode(&p); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	if e.Type == events.OrderStatusChanged && p.Status != string(model.OrderStatusShipped) {
		return nil
	}
	to := strings.TrimSpace(p.CustomerEmail)
	if to == "" {
		h.logger.Debug("no customer email on event", zap.String("type", string(e.Type)), zap.Int64("order_id", p.OrderID))
		return nil
	}

	if err := send(ctx, to, summary(p)); err != nil {
		return fmt.Errorf("send %s email for order %d: %w", e.Type, p.OrderID, err)
	}
	h.logger.Info("notification sent",
		zap.String("type", string(e.Type)),
		zap.Int64("order_id", p.OrderID))
	return nil
}

func summary(p events.OrderPayload) email.OrderSummary {
	ref := p.ExternalID
	if ref == "" {
		ref = fmt.Sprintf("%d", p.OrderID)
	}
	return email.OrderSummary{
		Reference:      ref,
		CustomerName:   p.CustomerName,
		Total:          p.Total.StringFixed(2),
		Currency:       p.Currency,
		ItemCount:      p.ItemCount,
		TrackingNumber: p.TrackingNumber,
		Reason:         p.Reason,
	}
}
