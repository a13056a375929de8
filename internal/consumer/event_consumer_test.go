package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/bedstate"
	mqttcommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/mqtt"
	rediscommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/redis"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

func setupConsumer(t *testing.T) (*redis.Client, *bedstate.Builder, *EventConsumer) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	builder := bedstate.NewBuilder()
	c := NewEventConsumer(client, builder, zap.NewNop(), "bed-events", "bedstatus", "test-consumer", 10)
	c.block = -1
	c.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, rediscommon.CreateConsumerGroup(context.Background(), client, "bed-events", "bedstatus"))
	return client, builder, c
}

func TestEventConsumer_AppliesEvents(t *testing.T) {
	client, builder, c := setupConsumer(t)
	ctx := context.Background()

	_, err := rediscommon.PublishJSONToStream(ctx, client, "bed-events", BedEvent{
		Kind: "occupancy", BedID: "12", Status: "occupied", Timestamp: "2024-06-10T08:00:00Z",
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, "bed-events", BedEvent{
		Kind: "status", BedID: "12", Status: "messy", Actor: "Rasa",
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishToStream(ctx, client, "bed-events", map[string]interface{}{
		"kind": "occupancy", "bed_id": "13", "status": "free",
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, "bed-events", map[string]string{"kind": "bogus"})
	require.NoError(t, err)

	applied, err := c.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	beds := builder.Beds()
	require.Len(t, beds, 2)
	assert.Equal(t, domain.OccupancyOccupied, beds[0].OccupancyStatus)
	assert.Equal(t, domain.BedStatusMessy, beds[0].CurrentStatus)
	assert.Equal(t, "Rasa", beds[0].LastCheckedBy)
	require.NotNil(t, beds[0].LastCheckedTime)
	assert.Equal(t, 12, beds[0].LastCheckedTime.Hour())
	assert.Equal(t, domain.OccupancyFree, beds[1].OccupancyStatus)

	// everything acked, including the invalid message
	pending, err := client.XPending(ctx, "bed-events", "bedstatus").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	applied, err = c.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestEventConsumer_StartStopsOnCancel(t *testing.T) {
	_, _, c := setupConsumer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type fakeSubscriber struct {
	topic   string
	handler mqttcommon.MessageHandler
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	f.topic = topic
	f.handler = handler
	return nil
}

func TestMQTTBedEvents(t *testing.T) {
	builder := bedstate.NewBuilder()
	m := NewMQTTBedEvents(builder, zap.NewNop())
	sub := &fakeSubscriber{}
	require.NoError(t, m.Subscribe(sub, "bedstatus/events", 1))
	assert.Equal(t, "bedstatus/events", sub.topic)

	require.NoError(t, sub.handler("bedstatus/events", []byte(`{"kind":"status","bed_id":"3","status":"missing_equipment"}`)))
	assert.Error(t, sub.handler("bedstatus/events", []byte(`{"kind":"status"}`)))
	assert.Error(t, sub.handler("bedstatus/events", []byte(`not json`)))

	beds := builder.Beds()
	require.Len(t, beds, 1)
	assert.Equal(t, domain.BedStatusMissingEquipment, beds[0].CurrentStatus)
}
