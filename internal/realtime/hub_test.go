package realtime_test

import (
	"context"
	"encoding/json"
	"testing"

	"tillsync/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToChannelSubscribers(t *testing.T) {
	hub := realtime.NewHub()
	storeID := uuid.New()

	ch, cancel := hub.Subscribe(realtime.StoreChannel(storeID))
	defer cancel()
	other, cancelOther := hub.Subscribe(realtime.StoreChannel(uuid.New()))
	defer cancelOther()

	hub.Deliver(realtime.StoreChannel(storeID), []byte("fired"))

	assert.Equal(t, "fired", string(<-ch))
	select {
	case m := <-other:
		t.Fatalf("message leaked across store channels: %s", m)
	default:
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := realtime.NewHub()
	channel := realtime.StationChannel(uuid.New(), "bar")
	ch, cancel := hub.Subscribe(channel)
	defer cancel()

	// Overflow the buffer; Deliver must return without blocking.
	for i := 0; i < 100; i++ {
		hub.Deliver(channel, []byte("tick"))
	}
	assert.Len(t, ch, 16)
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	hub := realtime.NewHub()
	channel := realtime.StoreChannel(uuid.New())
	ch, cancel := hub.Subscribe(channel)

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Delivery after cancel must not panic on the closed channel.
	hub.Deliver(channel, []byte("late"))

	// Double cancel is safe.
	cancel()
}

func TestPublisher_WrapsPayloadInEnvelope(t *testing.T) {
	hub := realtime.NewHub()
	pub := realtime.NewPublisher(nil, hub)
	channel := realtime.StoreChannel(uuid.New())
	ch, cancel := hub.Subscribe(channel)
	defer cancel()

	pub.Publish(context.Background(), channel, realtime.EventStatusUpdate, map[string]string{"status": "ready"})

	var msg realtime.Message
	require.NoError(t, json.Unmarshal(<-ch, &msg))
	assert.Equal(t, realtime.EventStatusUpdate, msg.Type)
	assert.JSONEq(t, `{"status":"ready"}`, string(msg.Payload))
}

func TestChannelNames(t *testing.T) {
	storeID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "store:11111111-2222-3333-4444-555555555555", realtime.StoreChannel(storeID))
	assert.Equal(t, "store:11111111-2222-3333-4444-555555555555:station:bar", realtime.StationChannel(storeID, "bar"))
}
