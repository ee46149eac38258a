package pages

import (
	"context"

	"aforo/internal/export"
	"aforo/internal/models"
	"aforo/internal/view"
)

// DashboardEventRow aggregates one event's reservations.
type DashboardEventRow struct {
	EventCard
	Reservations int `json:"reservations"`
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	Troubles     int `json:"troubles"`
	Anomalies    int `json:"anomalies"`
}

// DashboardView is the business analytics page.
type DashboardView struct {
	Business          *models.Business    `json:"business,omitempty"`
	TotalEvents       int                 `json:"total_events"`
	TotalReservations int                 `json:"total_reservations"`
	CompletedCheckins int                 `json:"completed_checkins"`
	PendingCheckins   int                 `json:"pending_checkins"`
	Troubles          int                 `json:"troubles"`
	Anomalies         int                 `json:"anomalies"`
	CheckinRate       float64             `json:"checkin_rate"`
	NoShowRate        float64             `json:"no_show_rate"`
	AverageRating     float64             `json:"average_rating"`
	ReviewCount       int                 `json:"review_count"`
	Events            []DashboardEventRow `json:"events"`
}

// Dashboard aggregates the business's events and their reservations
// into display totals. Everything is recomputed from a fresh fetch;
// this layer keeps no running counters.
func (s *Service) Dashboard(ctx context.Context, sessionKey string) view.Snapshot[DashboardView] {
	identity := s.sessions.Resolve(ctx, sessionKey)

	return load(ctx, s, "dashboard", "Error al cargar el panel de control", func(ctx context.Context) (DashboardView, error) {
		business, evs, byEvent, err := s.fetchBusinessActivity(ctx, identity.BusinessID)
		if err != nil {
			return DashboardView{}, err
		}

		dashboard := DashboardView{
			Business:    business,
			TotalEvents: len(evs),
			Events:      make([]DashboardEventRow, 0, len(evs)),
		}

		ratingSum := 0
		for i := range evs {
			row := DashboardEventRow{EventCard: newEventCard(&evs[i])}
			for _, r := range byEvent[evs[i].ID] {
				row.Reservations++
				switch r.CheckinTier() {
				case models.CheckinCompleted:
					row.Completed++
				case models.CheckinTrouble:
					row.Troubles++
				case models.CheckinAnomaly:
					row.Anomalies++
				default:
					row.Pending++
				}
				if r.CheckedIn() && r.Checkin.Review != nil {
					dashboard.ReviewCount++
					ratingSum += r.Checkin.Review.Rating
				}
			}

			dashboard.TotalReservations += row.Reservations
			dashboard.CompletedCheckins += row.Completed
			dashboard.PendingCheckins += row.Pending
			dashboard.Troubles += row.Troubles
			dashboard.Anomalies += row.Anomalies
			dashboard.Events = append(dashboard.Events, row)
		}

		if dashboard.TotalReservations > 0 {
			dashboard.CheckinRate = float64(dashboard.CompletedCheckins) / float64(dashboard.TotalReservations)
			dashboard.NoShowRate = 1 - dashboard.CheckinRate
		}
		if dashboard.ReviewCount > 0 {
			dashboard.AverageRating = float64(ratingSum) / float64(dashboard.ReviewCount)
		}
		return dashboard, nil
	})
}

// AttendanceReport writes the attendance workbook for the resolved
// business and returns the file path.
func (s *Service) AttendanceReport(ctx context.Context, sessionKey, exportDir string) (string, error) {
	identity := s.sessions.Resolve(ctx, sessionKey)

	business, evs, byEvent, err := s.fetchBusinessActivity(ctx, identity.BusinessID)
	if err != nil {
		actionOutcome("attendance_export", false)
		return "", err
	}

	rows := []export.Row{}
	for i := range evs {
		for _, r := range byEvent[evs[i].ID] {
			row := export.Row{
				EventID:       evs[i].ID,
				EventName:     evs[i].Name,
				ReservationID: r.ID,
				Status:        r.Status,
				CheckinTier:   r.CheckinTier(),
			}
			if r.KYCInfo != nil {
				row.AttendeeName = r.KYCInfo.Name
				row.AttendeePhone = r.KYCInfo.Phone
				row.AttendeeEmail = r.KYCInfo.Email
			}
			rows = append(rows, row)
		}
	}

	name := identity.BusinessID
	if business != nil {
		name = business.Name
	}
	path, err := export.WriteWorkbook(exportDir, name, rows, s.now())
	if err != nil {
		actionOutcome("attendance_export", false)
		return "", err
	}

	actionOutcome("attendance_export", true)
	s.logger.Info().Str("file_path", path).Int("rows", len(rows)).Msg("attendance report written")
	return path, nil
}

// fetchBusinessActivity loads the business, its events and each
// event's reservations. The profile lookup is best-effort; the events
// are not.
func (s *Service) fetchBusinessActivity(ctx context.Context, businessID string) (*models.Business, []models.Event, map[string][]models.Reservation, error) {
	business, err := s.backend.GetBusiness(ctx, businessID)
	if err != nil {
		s.logger.Warn().Err(err).Str("business_id", businessID).Msg("business profile unavailable")
		business = nil
	}

	evs, err := s.backend.BusinessEvents(ctx, businessID)
	if err != nil {
		return nil, nil, nil, err
	}

	byEvent := make(map[string][]models.Reservation, len(evs))
	for i := range evs {
		reservations, err := s.backend.EventReservations(ctx, evs[i].ID)
		if err != nil {
			return nil, nil, nil, err
		}
		byEvent[evs[i].ID] = reservations
	}
	return business, evs, byEvent, nil
}
