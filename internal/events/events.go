// Package events is an in-process pub/sub bus. Page actions publish
// attendance-relevant events; the analytics worker subscribes.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	EventReservationCreated = "reservation_created"
	EventCheckinCompleted   = "checkin_completed"
	EventCheckinTrouble     = "checkin_trouble"
)

// AttendancePayload is the snapshot published for attendance events.
type AttendancePayload struct {
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name,omitempty"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event *Event) error

// Bus provides in-process pub/sub.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish delivers an event to all handlers of its type, synchronously
// and in registration order. The first handler error is returned but
// remaining handlers still run.
func (b *Bus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *Bus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return b.Publish(&Event{Type: eventType, Payload: data, CreatedAt: time.Now()})
}
