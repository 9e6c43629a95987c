// Package events announces order lifecycle changes to other services.
package events

import (
	"context"
	"sync"
	"time"

	"restaurant-queue/models"
)

// Routing keys on the topic exchange.
const (
	OrderCreated       = "order.created"
	OrderDinerNotified = "order.diner_notified"
	OrderStatusChanged = "order.status_changed"
)

// Event is the JSON body of every published message.
type Event struct {
	Type              string             `json:"type"`
	OrderID           uint               `json:"order_id"`
	OrderCode         string             `json:"order_code"`
	CustomerName      string             `json:"customer_name"`
	Status            models.OrderStatus `json:"status"`
	FromStatus        models.OrderStatus `json:"from_status,omitempty"`
	QueuePosition     *int               `json:"queue_position,omitempty"`
	TargetArrivalTime *time.Time         `json:"target_arrival_time,omitempty"`
	ChangedBy         string             `json:"changed_by,omitempty"`
	OccurredAt        time.Time          `json:"occurred_at"`
}

// FromOrder builds an event describing o's current state.
func FromOrder(eventType string, o *models.Order, from models.OrderStatus, changedBy string, at time.Time) Event {
	return Event{
		Type:              eventType,
		OrderID:           o.ID,
		OrderCode:         o.OrderCode,
		CustomerName:      o.CustomerName,
		Status:            o.Status,
		FromStatus:        from,
		QueuePosition:     o.QueuePosition,
		TargetArrivalTime: o.TargetArrivalTime,
		ChangedBy:         changedBy,
		OccurredAt:        at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

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

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
