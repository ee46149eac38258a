package pages

import (
	"context"
	"sync"

	"aforo/internal/events"
	"aforo/internal/models"
	"aforo/internal/rank"
	"aforo/internal/session"
	"aforo/internal/view"
)

// EventSplit is the user home's event listing, split by start time.
type EventSplit struct {
	Upcoming []EventCard `json:"upcoming"`
	Past     []EventCard `json:"past"`
}

// UserHomeView is the landing page: who the visitor is plus every
// published event.
type UserHomeView struct {
	User   *session.Identity         `json:"user"`
	Events view.Snapshot[EventSplit] `json:"events"`
}

func (s *Service) UserHome(ctx context.Context, sessionKey string) UserHomeView {
	identity := s.sessions.Resolve(ctx, sessionKey)

	snap := load(ctx, s, "user_home", "Error al cargar los eventos", func(ctx context.Context) (EventSplit, error) {
		evs, err := s.backend.ListEvents(ctx)
		if err != nil {
			return EventSplit{}, err
		}

		now := s.now()
		split := EventSplit{Upcoming: []EventCard{}, Past: []EventCard{}}
		for i := range evs {
			card := newEventCard(&evs[i])
			if evs[i].Upcoming(now) {
				split.Upcoming = append(split.Upcoming, card)
			} else {
				split.Past = append(split.Past, card)
			}
		}
		return split, nil
	})

	return UserHomeView{User: identity, Events: snap}
}

// EventDetail renders one event for the reservation flow.
func (s *Service) EventDetail(ctx context.Context, eventID string) view.Snapshot[EventCard] {
	return load(ctx, s, "event_detail", "Error al cargar el evento", func(ctx context.Context) (EventCard, error) {
		ev, err := s.backend.GetEvent(ctx, eventID)
		if err != nil {
			return EventCard{}, err
		}
		return newEventCard(ev), nil
	})
}

// Reserve claims a capacity slot for the resolved user.
func (s *Service) Reserve(ctx context.Context, sessionKey, eventID string) ActionResult {
	identity := s.sessions.Resolve(ctx, sessionKey)

	reservation, err := s.backend.CreateReservation(ctx, eventID, identity.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("reserve failed")
		actionOutcome("reserve", false)
		return ActionResult{Message: "No se pudo completar la reserva"}
	}

	s.publishAttendance(events.EventReservationCreated, reservation, identity, models.ReservationPending)
	actionOutcome("reserve", true)
	return ActionResult{OK: true, Message: "Reserva realizada correctamente", ReservationID: reservation.ID}
}

// ReservedEventCard is an event the user holds a reservation for.
type ReservedEventCard struct {
	EventCard
	ReservationID string `json:"reservation_id"`
}

// MyEvents lists the resolved user's reserved events.
func (s *Service) MyEvents(ctx context.Context, sessionKey string) view.Snapshot[[]ReservedEventCard] {
	identity := s.sessions.Resolve(ctx, sessionKey)

	return load(ctx, s, "my_events", "Error al cargar tus eventos", func(ctx context.Context) ([]ReservedEventCard, error) {
		reserved, err := s.backend.UserReservations(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}

		cards := make([]ReservedEventCard, len(reserved))
		for i := range reserved {
			cards[i] = ReservedEventCard{
				EventCard:     newEventCard(&reserved[i].Event),
				ReservationID: reserved[i].ReservationID,
			}
		}
		return cards, nil
	})
}

// ReservationView is a reservation prepared for the detail page.
type ReservationView struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	CheckinTier string          `json:"checkin_tier"`
	CheckedIn   bool            `json:"checked_in"`
	Review      *models.Review  `json:"review,omitempty"`
	KYCInfo     *models.KYC     `json:"kyc_info,omitempty"`
	Checkin     *models.Checkin `json:"checkin,omitempty"`
}

func newReservationView(r *models.Reservation) ReservationView {
	rv := ReservationView{
		ID:          r.ID,
		Status:      r.Status,
		CheckinTier: r.CheckinTier(),
		CheckedIn:   r.CheckedIn(),
		KYCInfo:     r.KYCInfo,
		Checkin:     r.Checkin,
	}
	if r.Checkin != nil {
		rv.Review = r.Checkin.Review
	}
	return rv
}

// ReservationDetailView carries two independently fetched slices of
// state; either can fail without clobbering the other.
type ReservationDetailView struct {
	Event       view.Snapshot[EventCard]       `json:"event"`
	Reservation view.Snapshot[ReservationView] `json:"reservation"`
}

// ReservationDetail fetches the event and the reservation
// concurrently. Completion order is not guaranteed; each fetch settles
// only its own lifecycle.
func (s *Service) ReservationDetail(ctx context.Context, eventID, reservationID string) ReservationDetailView {
	var result ReservationDetailView
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Event = s.EventDetail(ctx, eventID)
	}()
	go func() {
		defer wg.Done()
		result.Reservation = load(ctx, s, "reservation_detail", "Error al cargar la reserva", func(ctx context.Context) (ReservationView, error) {
			r, err := s.backend.GetReservation(ctx, reservationID)
			if err != nil {
				return ReservationView{}, err
			}
			return newReservationView(r), nil
		})
	}()
	wg.Wait()

	return result
}

// SubmitReview posts a 1-5 rating for a reservation. The backend
// enforces the completed-check-in precondition; a 400 from it comes
// back as a failed result, form state untouched.
func (s *Service) SubmitReview(ctx context.Context, reservationID string, rating int, comment string) ActionResult {
	if rating < 1 || rating > 5 {
		actionOutcome("submit_review", false)
		return ActionResult{Message: "La valoración debe estar entre 1 y 5"}
	}

	if _, err := s.backend.SubmitReview(ctx, reservationID, rating, comment); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("submit review failed")
		actionOutcome("submit_review", false)
		return ActionResult{Message: "No se pudo enviar la reseña"}
	}

	actionOutcome("submit_review", true)
	return ActionResult{OK: true, Message: "Reseña enviada correctamente", ReservationID: reservationID}
}

// Recommendations returns the user's ranked, tiered recommendations.
func (s *Service) Recommendations(ctx context.Context, sessionKey string) view.Snapshot[[]rank.Ranked] {
	identity := s.sessions.Resolve(ctx, sessionKey)

	return load(ctx, s, "recommendations", "Error al cargar recomendaciones personalizadas", func(ctx context.Context) ([]rank.Ranked, error) {
		recs, err := s.backend.Recommendations(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}
		return rank.Rank(recs), nil
	})
}

// Register creates a user. On success the new identity replaces the
// session entry so the next page sees the registered user, and the
// form is considered cleared.
func (s *Service) Register(ctx context.Context, sessionKey string, form models.RegistrationForm) ActionResult {
	result, err := s.backend.RegisterUser(ctx, form)
	if err != nil {
		s.logger.Error().Err(err).Msg("register failed")
		actionOutcome("register", false)
		return ActionResult{Message: "Error en el registro"}
	}

	if !result.OK {
		actionOutcome("register", false)
		return ActionResult{
			Message:     "Algunos campos no son válidos",
			FieldErrors: result.FieldErrors,
		}
	}

	identity := &session.Identity{
		UserID:    result.UserID,
		UserName:  form.Name,
		UserEmail: form.Email,
	}
	if identity.UserID == "" {
		// The boolean-only response shape carries no id; keep the
		// fallback id so requests keep working.
		identity.UserID = s.sessions.Resolve(ctx, sessionKey).UserID
	}
	if err := s.sessions.Save(ctx, sessionKey, identity); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist registered identity")
	}

	actionOutcome("register", true)
	return ActionResult{OK: true, Message: "Registro completado correctamente"}
}

// Logout drops the visitor's session entry.
func (s *Service) Logout(ctx context.Context, sessionKey string) error {
	return s.sessions.Logout(ctx, sessionKey)
}

func (s *Service) publishAttendance(eventType string, r *models.Reservation, identity *session.Identity, status string) {
	if s.bus == nil {
		return
	}
	payload := events.AttendancePayload{
		ReservationID: r.ID,
		EventID:       r.EventID,
		UserID:        r.UserID,
		Status:        status,
		OccurredAt:    s.now(),
	}
	if identity != nil {
		payload.UserName = identity.UserName
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish attendance event failed")
	}
}
