package models

import "time"

const (
	EventTypeFixed    = "fixed"
	EventTypeTemporal = "temporal"
)

// Event is the backend's event document as served to the frontend.
// The frontend never owns or mutates it; a fresh fetch is the only
// consistency mechanism.
type Event struct {
	ID          string     `json:"_id"`
	BusinessID  string     `json:"businessId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"` // fixed, temporal
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Capacity    int        `json:"capacity"`
	Location    string     `json:"location"`
	Price       float64    `json:"price"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DisplayEnd returns the end timestamp to render. Fixed events are
// open-ended: even when the payload carries an end, it is not shown.
func (e *Event) DisplayEnd() *time.Time {
	if e.Type != EventTypeTemporal {
		return nil
	}
	return e.End
}

// Upcoming reports whether the event has not started yet at ref.
func (e *Event) Upcoming(ref time.Time) bool {
	return e.Start.After(ref)
}

// ReservedEvent is an event annotated with the caller's reservation,
// as returned by GET /events/user/{userId}/reservations.
type ReservedEvent struct {
	Event
	ReservationID string `json:"reservation_id"`
}

// Recommendation pairs an event with its backend-computed relevance
// score in [0,1]. Consumed read-only, for ranking and display.
type Recommendation struct {
	Event *Event  `json:"eventModel"`
	Score float64 `json:"score"`
}
