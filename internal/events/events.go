// Package events defines the notifications emitted after committed state
// changes. Delivery is best effort: publishers never roll back the change
// that produced an event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type names an event.
type Type string

const (
	OrderCreated          Type = "order.created"
	OrderPaymentCompleted Type = "order.payment_completed"
	OrderPaymentFailed    Type = "order.payment_failed"
	OrderSubmitted        Type = "order.submitted"
	OrderStatusChanged    Type = "order.status_changed"
	OrderCancelled        Type = "order.cancelled"
	ProductSynced         Type = "product.synced"
	ProductPriceChanged   Type = "product.price_changed"
	CatalogSynced         Type = "catalog.synced"
)

// Event is the envelope written to the stream.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// New builds an event. Key groups related events (an order or product id)
// so a partitioned stream keeps them in order.
func New(t Type, key string, data any) (Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit builds and publishes an event, logging instead of returning failures.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, t Type, key string, data any) {
	if p == nil {
		return
	}
	e, err := New(t, key, data)
	if err == nil {
		err = p.Publish(ctx, e)
	}
	if err != nil && logger != nil {
		logger.Warn("failed to publish event",
			zap.String("type", string(t)),
			zap.String("key", key),
			zap.Error(err))
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
