package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Matches(t *testing.T) {
	c := Change{Table: "orders", Type: Update, Columns: map[string]string{"delivery_person_id": "r1"}}

	assert.True(t, Filter{Table: "orders"}.Matches(c))
	assert.True(t, Filter{Table: "orders", Type: Update, Column: "delivery_person_id", Value: "r1"}.Matches(c))
	assert.False(t, Filter{Table: "orders", Type: Insert}.Matches(c))
	assert.False(t, Filter{Table: "orders", Column: "delivery_person_id", Value: "r2"}.Matches(c))
	assert.False(t, Filter{Table: "products"}.Matches(c))
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	var got []Change
	sub, err := bus.Subscribe(Filter{Table: "orders", Type: Update}, func(c Change) { got = append(got, c) })
	require.NoError(t, err)

	c, err := NewChange("orders", Update, map[string]string{"status": "shipped"}, map[string]string{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, c))
	require.NoError(t, bus.Publish(ctx, Change{Table: "orders", Type: Insert}))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":"1"}`, string(got[0].Record))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, bus.Publish(ctx, c))
	assert.Len(t, got, 1)
}

func TestMemoryBus_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewMemoryBus().Publish(ctx, Change{Table: "orders"}))
}

func TestNATSBus_RoundTrip(t *testing.T) {
	url := os.Getenv("WHOLESALE_TEST_NATS_URL")
	if url == "" {
		t.Skip("WHOLESALE_TEST_NATS_URL not set")
	}
	bus, err := ConnectNATS(url)
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan Change, 1)
	_, err = bus.Subscribe(Filter{Table: "orders", Type: Update, Column: "delivery_person_id", Value: "r1"}, func(c Change) { got <- c })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Change{Table: "orders", Type: Update, Columns: map[string]string{"delivery_person_id": "r2"}}))
	require.NoError(t, bus.Publish(context.Background(), Change{Table: "orders", Type: Update, Columns: map[string]string{"delivery_person_id": "r1"}}))

	select {
	case c := <-got:
		assert.Equal(t, "r1", c.Columns["delivery_person_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}
}
