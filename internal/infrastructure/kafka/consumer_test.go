package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pod-storefront/internal/events"
)

type stubReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
	closed   bool
}

func (r *stubReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	if msg.Value == nil {
		return kafka.Message{}, errors.New("transient read error")
	}
	return msg, nil
}

func (r *stubReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumer_Consume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := events.New(events.OrderCreated, "order-1", events.OrderPayload{OrderID: 1})
	require.NoError(t, err)
	valid, err := json.Marshal(e)
	require.NoError(t, err)

	reader := &stubReader{
		cancel: cancel,
		messages: []kafka.Message{
			{Key: []byte("bad"), Value: []byte("not json")},
			{Value: nil},
			{Key: []byte("order-1"), Value: valid},
			{Key: []byte("order-1"), Value: valid},
		},
	}
	c := NewConsumerWithReader(reader, nil)

	var handled []events.Event
	calls := 0
	err = c.Consume(ctx, func(_ context.Context, ev events.Event) error {
		calls++
		handled = append(handled, ev)
		if calls == 1 {
			return errors.New("handler failed")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, handled, 2)
	assert.Equal(t, events.OrderCreated, handled[0].Type)
	assert.Equal(t, e.ID, handled[1].ID)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
