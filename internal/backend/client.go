package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"aforo/internal/config"
	"aforo/internal/metrics"
	"aforo/internal/models"

	"github.com/rs/zerolog"
)

// Client is the single typed gateway to the events backend. Every call
// fails on a non-2xx status before decoding, so error bodies are never
// misread as data. One attempt per call: recovery is the caller's
// explicit refetch, never an automatic retry.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func New(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "backend").Logger()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  base,
	}
}

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.getJSON(ctx, "list_events", "/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	path := "/events/" + url.PathEscape(eventID)
	if err := c.getJSON(ctx, "get_event", path, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UserReservations lists the events a user holds reservations for,
// each annotated with its reservation id.
func (c *Client) UserReservations(ctx context.Context, userID string) ([]models.ReservedEvent, error) {
	var events []models.ReservedEvent
	path := "/events/user/" + url.PathEscape(userID) + "/reservations"
	if err := c.getJSON(ctx, "user_reservations", path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	path := "/events/recommendations/" + url.PathEscape(userID)
	if err := c.getJSON(ctx, "recommendations", path, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) CreateReservation(ctx context.Context, eventID, userID string) (*models.Reservation, error) {
	body := map[string]string{"eventId": eventID, "userId": userID}
	var reservation models.Reservation
	if err := c.postJSON(ctx, "create_reservation", "/reservations", body, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *Client) GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	var reservation models.Reservation
	path := "/reservations/" + url.PathEscape(reservationID)
	if err := c.getJSON(ctx, "get_reservation", path, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// SubmitReview posts a post-check-in review. The backend rejects it
// with a 400 when the reservation has no completed check-in.
func (c *Client) SubmitReview(ctx context.Context, reservationID string, rating int, comment string) (*models.Review, error) {
	body := map[string]any{"rating": rating, "comment": comment}
	var review models.Review
	path := "/reservations/" + url.PathEscape(reservationID) + "/review"
	if err := c.postJSON(ctx, "submit_review", path, body, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) EventReservations(ctx context.Context, eventID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	path := "/reservations/event/" + url.PathEscape(eventID)
	if err := c.getJSON(ctx, "event_reservations", path, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

// CheckIn confirms physical attendance for a reservation. The returned
// previous-anomaly flag is backend-owned and surfaced verbatim.
func (c *Client) CheckIn(ctx context.Context, reservationID string) (*models.CheckinResult, error) {
	var result models.CheckinResult
	path := "/reservations/" + url.PathEscape(reservationID) + "/checkin"
	if err := c.postJSON(ctx, "checkin", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportTrouble flags a completed check-in as problematic.
func (c *Client) ReportTrouble(ctx context.Context, reservationID string) error {
	body := map[string]string{"status": models.CheckinTrouble}
	path := "/reservations/" + url.PathEscape(reservationID) + "/checkin/trouble"
	return c.postJSON(ctx, "checkin_trouble", path, body, nil)
}

func (c *Client) GetBusiness(ctx context.Context, businessID string) (*models.Business, error) {
	var business models.Business
	path := "/businesses/" + url.PathEscape(businessID)
	if err := c.getJSON(ctx, "get_business", path, &business); err != nil {
		return nil, err
	}
	return &business, nil
}

func (c *Client) BusinessEvents(ctx context.Context, businessID string) ([]models.Event, error) {
	var events []models.Event
	path := "/businesses/" + url.PathEscape(businessID) + "/events"
	if err := c.getJSON(ctx, "business_events", path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EventDraft is the create-event payload. End must be set only for
// temporal events.
type EventDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Start       string   `json:"start"`
	End         *string  `json:"end,omitempty"`
	Capacity    int      `json:"capacity"`
	Location    string   `json:"location"`
	Price       float64  `json:"price"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func (c *Client) CreateEvent(ctx context.Context, businessID string, draft EventDraft) (*models.Event, error) {
	var event models.Event
	path := "/businesses/" + url.PathEscape(businessID) + "/events"
	if err := c.postJSON(ctx, "create_event", path, draft, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ReviewsAnalysis fetches the free-text review analysis for a business
// and category. The backend serves either a JSON-encoded string or raw
// text; both are handled.
func (c *Client) ReviewsAnalysis(ctx context.Context, businessID, category string) (string, error) {
	path := "/businesses/reviews_analysys/" + url.PathEscape(businessID) +
		"?category=" + url.QueryEscape(category)

	raw, err := c.do(ctx, "reviews_analysis", http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	var text string
	if jsonErr := json.Unmarshal(raw, &text); jsonErr == nil {
		return text, nil
	}
	return string(raw), nil
}

// RegisterUser creates a user. The backend answers `true` on success
// or a field-name→validity map on validation failure; both shapes fold
// into one Result.
func (c *Client) RegisterUser(ctx context.Context, form models.RegistrationForm) (*Result, error) {
	raw, err := c.do(ctx, "register_user", http.MethodPost, "/users/", form)
	if err != nil {
		return nil, err
	}
	return decodeRegistration(raw)
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, target any) error {
	raw, err := c.do(ctx, endpoint, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.decode(endpoint, raw, target)
}

func (c *Client) postJSON(ctx context.Context, endpoint, path string, body, target any) error {
	raw, err := c.do(ctx, endpoint, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	return c.decode(endpoint, raw, target)
}

func (c *Client) decode(endpoint string, raw []byte, target any) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encode request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncBackend(endpoint, 0)
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("backend request failed")
		return nil, fmt.Errorf("backend %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.IncBackend(endpoint, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: read response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(raw)),
		}
	}

	return raw, nil
}
