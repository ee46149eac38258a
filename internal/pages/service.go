// Package pages builds the per-page view models the thin UI renders.
// Each builder resolves an identity, drives its fetches through the
// view lifecycle and returns loading/ready/failed snapshots; actions
// go through the backend client and come back as one normalized
// ActionResult shape.
package pages

import (
	"context"
	"time"

	"aforo/internal/backend"
	"aforo/internal/events"
	"aforo/internal/metrics"
	"aforo/internal/models"
	"aforo/internal/session"
	"aforo/internal/view"

	"github.com/rs/zerolog"
)

// Backend is the slice of the events-backend client the pages consume.
type Backend interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	UserReservations(ctx context.Context, userID string) ([]models.ReservedEvent, error)
	Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error)
	CreateReservation(ctx context.Context, eventID, userID string) (*models.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error)
	SubmitReview(ctx context.Context, reservationID string, rating int, comment string) (*models.Review, error)
	EventReservations(ctx context.Context, eventID string) ([]models.Reservation, error)
	CheckIn(ctx context.Context, reservationID string) (*models.CheckinResult, error)
	ReportTrouble(ctx context.Context, reservationID string) error
	GetBusiness(ctx context.Context, businessID string) (*models.Business, error)
	BusinessEvents(ctx context.Context, businessID string) ([]models.Event, error)
	CreateEvent(ctx context.Context, businessID string, draft backend.EventDraft) (*models.Event, error)
	ReviewsAnalysis(ctx context.Context, businessID, category string) (string, error)
	RegisterUser(ctx context.Context, form models.RegistrationForm) (*backend.Result, error)
}

type Service struct {
	backend  Backend
	sessions *session.Manager
	bus      *events.Bus
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(b Backend, sessions *session.Manager, bus *events.Bus, logger *zerolog.Logger) *Service {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "pages").Logger()
	}
	return &Service{
		backend:  b,
		sessions: sessions,
		bus:      bus,
		logger:   base,
		now:      time.Now,
	}
}

// ActionResult is the normalized outcome of every user-triggered
// mutation, whatever shape the backend answered with.
type ActionResult struct {
	OK              bool            `json:"ok"`
	Message         string          `json:"message"`
	ReservationID   string          `json:"reservation_id,omitempty"`
	PreviousAnomaly bool            `json:"previous_anomaly_checkins,omitempty"`
	FieldErrors     map[string]bool `json:"field_errors,omitempty"`
}

// EventCard is an event prepared for rendering: the end timestamp is
// already filtered through the fixed/temporal invariant.
type EventCard struct {
	ID          string     `json:"id"`
	BusinessID  string     `json:"business_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Capacity    int        `json:"capacity"`
	Location    string     `json:"location"`
	Price       float64    `json:"price"`
	Free        bool       `json:"free"`
}

func newEventCard(e *models.Event) EventCard {
	return EventCard{
		ID:          e.ID,
		BusinessID:  e.BusinessID,
		Name:        e.Name,
		Description: e.Description,
		Type:        e.Type,
		Start:       e.Start,
		End:         e.DisplayEnd(),
		Capacity:    e.Capacity,
		Location:    e.Location,
		Price:       e.Price,
		Free:        e.Price == 0,
	}
}

func eventCards(evs []models.Event) []EventCard {
	cards := make([]EventCard, len(evs))
	for i := range evs {
		cards[i] = newEventCard(&evs[i])
	}
	return cards
}

// load wraps view.Load with page metrics and error logging. The
// message shown on failure is the page's own, not the raw error.
func load[T any](ctx context.Context, s *Service, page, failMessage string, fetch func(context.Context) (T, error)) view.Snapshot[T] {
	snap, err := view.Load(ctx, fetch, func(error) string { return failMessage })
	if err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("page load failed")
		metrics.IncPageLoad(page, "failed")
		return snap
	}
	metrics.IncPageLoad(page, "ready")
	return snap
}

func actionOutcome(action string, ok bool) {
	if ok {
		metrics.IncAction(action, "ok")
	} else {
		metrics.IncAction(action, "failed")
	}
}
