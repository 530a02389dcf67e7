package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/pubsub/memory"
	"github.com/facturo/facturo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisherDeliversEnvelope(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNoopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := ps.Subscribe(ctx, cfg.Event.Topic)
	require.NoError(t, err)

	ctx = types.SetTenantID(ctx, "tenant_1")
	ctx = types.SetUserID(ctx, "user_1")

	pub := NewEventPublisher(cfg, ps, log)
	event := NewEvent(ctx, types.EventNumberAllocated, "sequence", "seq_1", map[string]any{
		"number": 7,
	})
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, types.EventNumberAllocated, got.EventName)
		assert.Equal(t, "tenant_1", got.TenantID)
		assert.Equal(t, "user_1", got.UserID)
		assert.Equal(t, "tenant_1", msg.Metadata.Get("tenant_id"))
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestDisabledEventsAreDropped(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Event.Enabled = false

	pub := NewEventPublisher(cfg, nil, logger.NewNoopLogger())
	err := pub.Publish(context.Background(), NewEvent(context.Background(), types.EventPaymentRecorded, "payment", "pay_1", nil))
	assert.NoError(t, err)
}
