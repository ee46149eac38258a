package pages

import (
	"context"
	"strings"
	"sync"

	"aforo/internal/backend"
	"aforo/internal/events"
	"aforo/internal/models"
	"aforo/internal/view"
)

// BusinessHomeView carries the tenant profile and its events as two
// independent slices of state: the profile fetch failing must not take
// the event list down with it, and vice versa.
type BusinessHomeView struct {
	Business view.Snapshot[*models.Business] `json:"business"`
	Events   view.Snapshot[[]EventCard]      `json:"events"`
}

func (s *Service) BusinessHome(ctx context.Context, sessionKey string) BusinessHomeView {
	identity := s.sessions.Resolve(ctx, sessionKey)

	var result BusinessHomeView
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Business = load(ctx, s, "business_home", "Error al obtener datos del negocio", func(ctx context.Context) (*models.Business, error) {
			return s.backend.GetBusiness(ctx, identity.BusinessID)
		})
	}()
	go func() {
		defer wg.Done()
		result.Events = load(ctx, s, "business_events", "Error al obtener eventos", func(ctx context.Context) ([]EventCard, error) {
			evs, err := s.backend.BusinessEvents(ctx, identity.BusinessID)
			if err != nil {
				return nil, err
			}
			return eventCards(evs), nil
		})
	}()
	wg.Wait()

	return result
}

// EventForm is the create-event form as submitted.
type EventForm struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Capacity    int      `json:"capacity"`
	Location    string   `json:"location"`
	Price       float64  `json:"price"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// validate performs the minimal shape checks the old form relied on
// the browser for, plus the fixed/temporal end invariant.
func (f *EventForm) validate() map[string]bool {
	errs := map[string]bool{}
	valid := func(field string, ok bool) {
		errs[field] = ok
	}

	valid("name", strings.TrimSpace(f.Name) != "")
	valid("start", strings.TrimSpace(f.Start) != "")
	valid("capacity", f.Capacity > 0)
	valid("price", f.Price >= 0)
	valid("type", f.Type == models.EventTypeFixed || f.Type == models.EventTypeTemporal)
	// End is required for temporal events and forbidden for fixed ones.
	switch f.Type {
	case models.EventTypeTemporal:
		valid("end", strings.TrimSpace(f.End) != "")
	case models.EventTypeFixed:
		valid("end", strings.TrimSpace(f.End) == "")
	}

	for _, ok := range errs {
		if !ok {
			return errs
		}
	}
	return nil
}

// CreateEvent validates the form and posts it for the resolved
// business. Failed validation leaves the form to be resubmitted.
func (s *Service) CreateEvent(ctx context.Context, sessionKey string, form EventForm) ActionResult {
	if fieldErrs := form.validate(); fieldErrs != nil {
		actionOutcome("create_event", false)
		return ActionResult{Message: "Algunos campos no son válidos", FieldErrors: fieldErrs}
	}

	identity := s.sessions.Resolve(ctx, sessionKey)

	draft := backend.EventDraft{
		Name:        form.Name,
		Description: form.Description,
		Type:        form.Type,
		Start:       form.Start,
		Capacity:    form.Capacity,
		Location:    form.Location,
		Price:       form.Price,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
	}
	if form.Type == models.EventTypeTemporal {
		end := form.End
		draft.End = &end
	}

	if _, err := s.backend.CreateEvent(ctx, identity.BusinessID, draft); err != nil {
		s.logger.Error().Err(err).Str("business_id", identity.BusinessID).Msg("create event failed")
		actionOutcome("create_event", false)
		return ActionResult{Message: "Error al crear el evento"}
	}

	actionOutcome("create_event", true)
	return ActionResult{OK: true, Message: "Evento creado correctamente"}
}

// CheckinRow is one reservation on the check-in board.
type CheckinRow struct {
	ReservationID  string `json:"reservation_id"`
	AttendeeName   string `json:"attendee_name"`
	AttendeePhone  string `json:"attendee_phone,omitempty"`
	AttendeeEmail  string `json:"attendee_email,omitempty"`
	Status         string `json:"status"`
	Tier           string `json:"tier"`
	CanReportIssue bool   `json:"can_report_issue"`
}

func newCheckinRow(r *models.Reservation) CheckinRow {
	row := CheckinRow{
		ReservationID:  r.ID,
		AttendeeName:   "Usuario Anónimo",
		Status:         r.Status,
		Tier:           r.CheckinTier(),
		CanReportIssue: r.CheckedIn(),
	}
	if r.KYCInfo != nil {
		if r.KYCInfo.Name != "" {
			row.AttendeeName = r.KYCInfo.Name
		}
		row.AttendeePhone = r.KYCInfo.Phone
		row.AttendeeEmail = r.KYCInfo.Email
	}
	return row
}

// CheckinBoard lists an event's reservations with their check-in tier.
func (s *Service) CheckinBoard(ctx context.Context, eventID string) view.Snapshot[[]CheckinRow] {
	return load(ctx, s, "checkin_board", "Error al cargar las reservas", func(ctx context.Context) ([]CheckinRow, error) {
		reservations, err := s.backend.EventReservations(ctx, eventID)
		if err != nil {
			return nil, err
		}

		rows := make([]CheckinRow, len(reservations))
		for i := range reservations {
			rows[i] = newCheckinRow(&reservations[i])
		}
		return rows, nil
	})
}

// CheckIn confirms attendance for a reservation. The backend's
// previous-anomaly flag is relayed untouched for the operator to see.
func (s *Service) CheckIn(ctx context.Context, reservationID string) ActionResult {
	result, err := s.backend.CheckIn(ctx, reservationID)
	if err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("check-in failed")
		actionOutcome("checkin", false)
		return ActionResult{Message: "Error al hacer el check-in"}
	}

	s.publishCheckinEvent(ctx, events.EventCheckinCompleted, reservationID, models.CheckinCompleted)
	actionOutcome("checkin", true)
	return ActionResult{
		OK:              true,
		Message:         "Check-in realizado correctamente",
		ReservationID:   reservationID,
		PreviousAnomaly: result.PreviousAnomalyCheckins,
	}
}

// ReportTrouble flags a completed check-in as problematic.
func (s *Service) ReportTrouble(ctx context.Context, reservationID string) ActionResult {
	if err := s.backend.ReportTrouble(ctx, reservationID); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("report trouble failed")
		actionOutcome("checkin_trouble", false)
		return ActionResult{Message: "Error al reportar el problema"}
	}

	s.publishCheckinEvent(ctx, events.EventCheckinTrouble, reservationID, models.CheckinTrouble)
	actionOutcome("checkin_trouble", true)
	return ActionResult{OK: true, Message: "Problema registrado", ReservationID: reservationID}
}

// publishCheckinEvent enriches the attendance event with the
// reservation's ids when it can; the action already succeeded, so a
// failed lookup only degrades the payload.
func (s *Service) publishCheckinEvent(ctx context.Context, eventType, reservationID, status string) {
	if s.bus == nil {
		return
	}

	payload := events.AttendancePayload{
		ReservationID: reservationID,
		Status:        status,
		OccurredAt:    s.now(),
	}
	if r, err := s.backend.GetReservation(ctx, reservationID); err == nil {
		payload.EventID = r.EventID
		payload.UserID = r.UserID
		if r.KYCInfo != nil {
			payload.UserName = r.KYCInfo.Name
		}
	}

	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish attendance event failed")
	}
}

// ReviewItem is one completed-check-in review across a business's
// events.
type ReviewItem struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Reviewer  string `json:"reviewer,omitempty"`
}

// BusinessReviews collects reviews left on the business's events.
func (s *Service) BusinessReviews(ctx context.Context, sessionKey string) view.Snapshot[[]ReviewItem] {
	identity := s.sessions.Resolve(ctx, sessionKey)

	return load(ctx, s, "business_reviews", "Error al cargar las reseñas", func(ctx context.Context) ([]ReviewItem, error) {
		evs, err := s.backend.BusinessEvents(ctx, identity.BusinessID)
		if err != nil {
			return nil, err
		}

		items := []ReviewItem{}
		for i := range evs {
			reservations, err := s.backend.EventReservations(ctx, evs[i].ID)
			if err != nil {
				return nil, err
			}
			for j := range reservations {
				r := &reservations[j]
				if !r.CheckedIn() || r.Checkin.Review == nil {
					continue
				}
				item := ReviewItem{
					EventID:   evs[i].ID,
					EventName: evs[i].Name,
					Rating:    r.Checkin.Review.Rating,
					Comment:   r.Checkin.Review.Comment,
				}
				if r.KYCInfo != nil {
					item.Reviewer = r.KYCInfo.Name
				}
				items = append(items, item)
			}
		}
		return items, nil
	})
}

// ReviewsAnalysis fetches the backend's free-text analysis for a
// review category.
func (s *Service) ReviewsAnalysis(ctx context.Context, sessionKey, category string) view.Snapshot[string] {
	identity := s.sessions.Resolve(ctx, sessionKey)

	return load(ctx, s, "reviews_analysis", "Error al generar el análisis", func(ctx context.Context) (string, error) {
		return s.backend.ReviewsAnalysis(ctx, identity.BusinessID, category)
	})
}
