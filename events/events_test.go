package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-queue/models"
)

func TestFromOrder(t *testing.T) {
	pos := 3
	target := time.Date(2026, 3, 1, 18, 15, 0, 0, time.UTC)
	o := &models.Order{
		ID:                42,
		CustomerName:      "Ada",
		OrderCode:         "K7Q2",
		Status:            models.StatusAwaitingArrival,
		QueuePosition:     &pos,
		TargetArrivalTime: &target,
	}
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.FixedZone("CET", 3600))

	e := FromOrder(OrderDinerNotified, o, models.StatusInQueue, "staff:sam", at)

	assert.Equal(t, OrderDinerNotified, e.Type)
	assert.Equal(t, uint(42), e.OrderID)
	assert.Equal(t, models.StatusInQueue, e.FromStatus)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "K7Q2", body["order_code"])
	assert.Equal(t, "AWAITING_ARRIVAL", body["status"])
	assert.Contains(t, body, "target_arrival_time")
}

func TestFromOrderOmitsEmptyOptionalFields(t *testing.T) {
	e := FromOrder(OrderCreated, &models.Order{Status: models.StatusReceived}, "", "", time.Now())
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "from_status")
	assert.NotContains(t, string(raw), "queue_position")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, Event{Type: OrderCreated}))
	require.NoError(t, r.Publish(ctx, Event{Type: OrderStatusChanged}))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, OrderStatusChanged, got[1].Type)

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, Event{}))
	assert.Len(t, r.Events(), 2)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
