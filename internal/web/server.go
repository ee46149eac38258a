// Package web is the HTTP surface: page endpoints return the view
// models the thin UI renders, action endpoints run mutations and
// answer with a normalized result.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"aforo/internal/config"
	"aforo/internal/models"
	"aforo/internal/pages"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sessionCookie = "aforo_session"

type Server struct {
	cfg       config.ServerConfig
	pages     *pages.Service
	exportDir string
	logger    zerolog.Logger
	server    *http.Server
	limiter   *rateLimiter
}

func NewServer(cfg *config.Config, svc *pages.Service, logger *zerolog.Logger) *Server {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "web").Logger()
	}

	srv := &Server{
		cfg:       cfg.Server,
		pages:     svc,
		exportDir: cfg.Exports.Path,
		logger:    base,
		limiter:   newRateLimiter(cfg.Server.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	mux.HandleFunc("GET /pages/home", srv.handleUserHome)
	mux.HandleFunc("GET /pages/events/{id}", srv.handleEventDetail)
	mux.HandleFunc("GET /pages/my-events", srv.handleMyEvents)
	mux.HandleFunc("GET /pages/recommendations", srv.handleRecommendations)
	mux.HandleFunc("GET /pages/reservations/{id}", srv.handleReservationDetail)
	mux.HandleFunc("GET /pages/business/home", srv.handleBusinessHome)
	mux.HandleFunc("GET /pages/business/dashboard", srv.handleDashboard)
	mux.HandleFunc("GET /pages/business/events/{id}/checkins", srv.handleCheckinBoard)
	mux.HandleFunc("GET /pages/business/reviews", srv.handleBusinessReviews)
	mux.HandleFunc("GET /pages/business/reviews/analysis", srv.handleReviewsAnalysis)

	mux.HandleFunc("POST /actions/events", srv.handleCreateEvent)
	mux.HandleFunc("POST /actions/events/{id}/reserve", srv.handleReserve)
	mux.HandleFunc("POST /actions/reservations/{id}/review", srv.handleReview)
	mux.HandleFunc("POST /actions/reservations/{id}/checkin", srv.handleCheckIn)
	mux.HandleFunc("POST /actions/reservations/{id}/checkin/trouble", srv.handleTrouble)
	mux.HandleFunc("POST /actions/register", srv.handleRegister)
	mux.HandleFunc("POST /actions/logout", srv.handleLogout)
	mux.HandleFunc("POST /actions/exports/attendance", srv.handleExportAttendance)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.loggingMiddleware(srv.rateLimitMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUserHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.UserHome(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.EventDetail(r.Context(), r.PathValue("id")))
}

func (s *Server) handleMyEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.MyEvents(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.Recommendations(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleReservationDetail(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, s.pages.ReservationDetail(r.Context(), eventID, r.PathValue("id")))
}

func (s *Server) handleBusinessHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.BusinessHome(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.Dashboard(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleCheckinBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.CheckinBoard(r.Context(), r.PathValue("id")))
}

func (s *Server) handleBusinessReviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.BusinessReviews(r.Context(), s.sessionKey(w, r)))
}

func (s *Server) handleReviewsAnalysis(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "category query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, s.pages.ReviewsAnalysis(r.Context(), s.sessionKey(w, r), category))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var form pages.EventForm
	if !decodeBody(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, s.pages.CreateEvent(r.Context(), s.sessionKey(w, r), form))
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.Reserve(r.Context(), s.sessionKey(w, r), r.PathValue("id")))
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.pages.SubmitReview(r.Context(), r.PathValue("id"), body.Rating, body.Comment))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.CheckIn(r.Context(), r.PathValue("id")))
}

func (s *Server) handleTrouble(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.ReportTrouble(r.Context(), r.PathValue("id")))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form models.RegistrationForm
	if !decodeBody(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, s.pages.Register(r.Context(), s.sessionKey(w, r), form))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.Logout(r.Context(), s.sessionKey(w, r)); err != nil {
		writeError(w, http.StatusInternalServerError, "no se pudo cerrar la sesión")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	path, err := s.pages.AttendanceReport(r.Context(), s.sessionKey(w, r), s.exportDir)
	if err != nil {
		writeError(w, http.StatusBadGateway, "no se pudo generar el informe")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "file": path})
}

// sessionKey reads the visitor's session key from the X-Session-Key
// header or the session cookie, minting a cookie on the first request
// so every page of the visit resolves the same identity.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if key := r.Header.Get("X-Session-Key"); key != "" {
		return key
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
