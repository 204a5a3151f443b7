package events

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	e, err := New(OrderCreated, "order-1", OrderPayload{OrderID: 1, Total: decimal.RequireFromString("10.50")})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, OrderCreated, e.Type)
	assert.Equal(t, "order-1", e.Key)
	assert.False(t, e.OccurredAt.IsZero())

	var p OrderPayload
	require.NoError(t, e.Decode(&p))
	assert.Equal(t, int64(1), p.OrderID)
	assert.True(t, p.Total.Equal(decimal.RequireFromString("10.5")))
}

func TestNew_UnmarshalablePayload(t *testing.T) {
	_, err := New(OrderCreated, "k", make(chan int))
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	rec := &Recorder{}
	Emit(context.Background(), rec, zap.NewNop(), ProductSynced, "product-1", ProductPayload{ProductID: 1})
	Emit(context.Background(), rec, zap.NewNop(), CatalogSynced, "shop-1", CatalogPayload{ShopID: "1"})

	assert.Len(t, rec.Events(), 2)
	assert.Len(t, rec.OfType(ProductSynced), 1)
}

func TestEmit_FailureIsSwallowed(t *testing.T) {
	rec := &Recorder{Err: errors.New("broker down")}

	assert.NotPanics(t, func() {
		Emit(context.Background(), rec, zap.NewNop(), OrderCreated, "order-1", OrderPayload{})
		Emit(context.Background(), nil, nil, OrderCreated, "order-1", OrderPayload{})
	})
	assert.Empty(t, rec.Events())
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
