package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/model"
	"github.com/noahxzhu/holiday-notify/internal/worker"
)

//go:embed templates/*
var templateFS embed.FS

const sessionCookie = "session_token"

type HolidayChecker interface {
	RunCheck(ctx context.Context, manual bool, role string) model.CheckResult
	TodaysHoliday(ctx context.Context) (*model.HolidayRecord, error)
	Announce(ctx context.Context, h model.HolidayRecord, role string) (string, bool)
}

type HolidayLister interface {
	Upcoming(ctx context.Context, from time.Time, within time.Duration, limit int) ([]model.HolidayRecord, error)
}

type Announcer interface {
	Send(ctx context.Context, req model.AnnouncementRequest) model.AnnouncementResult
}

type AnnouncementScheduler interface {
	Schedule(at time.Time, req model.AnnouncementRequest) (model.ScheduledAnnouncement, error)
	List() []model.ScheduledAnnouncement
}

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type Deps struct {
	Checker   HolidayChecker
	Holidays  HolidayLister
	Announcer Announcer
	Scheduler AnnouncementScheduler
	Clock     Clock
	Status    *activity.Status
	Log       *activity.Log
}

type Options struct {
	Password           string
	WebhooksConfigured int
	UpcomingDays       int
	UpcomingLimit      int
	SendInterval       time.Duration // minimum spacing of trigger/send requests
	SendBurst          int
	SessionTTL         time.Duration
}

type Server struct {
	deps    Deps
	opts    Options
	router  chi.Router
	limiter *rate.Limiter

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = 30
	}
	if opts.UpcomingLimit <= 0 {
		opts.UpcomingLimit = 15
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = 10 * time.Second
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 3
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		router:   chi.NewRouter(),
		limiter:  rate.NewLimiter(rate.Every(opts.SendInterval), opts.SendBurst),
		sessions: make(map[string]time.Time),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/", s.handleIndex)

		r.Route("/api", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/logs", s.handleLogs)
			r.Get("/holidays/upcoming", s.handleUpcoming)
			r.Get("/holidays/today", s.handleToday)
			r.Get("/announcements/scheduled", s.handleScheduled)

			r.Group(func(r chi.Router) {
				r.Use(s.throttle)
				r.Post("/trigger/holiday", s.handleTrigger)
				r.Post("/announcement/send", s.handleSend)
				r.Post("/announcement/schedule", s.handleSchedule)
				r.Post("/test/newyear", s.handleTestNewYear)
			})
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Middleware

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Password == "" || s.validSession(r) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			slog.Warn("Request throttled", "path", r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorBody("Too many requests, try again shortly"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validSession(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.sessions[cookie.Value]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.sessions, cookie.Value)
		return false
	}
	return true
}

// Pages

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.opts.Password == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "login.html", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Password == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	password := r.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.opts.Password)) != 1 {
		slog.Warn("Dashboard login failed", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		s.renderTemplate(w, "login.html", map[string]any{"Error": "Invalid password"})
		return
	}

	sessionToken := uuid.New().String()
	expires := time.Now().Add(s.opts.SessionTTL)
	s.mu.Lock()
	s.sessions[sessionToken] = expires
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionToken,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, _ := r.Cookie(sessionCookie); cookie != nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "index.html", map[string]any{
		"Timezone":    s.deps.Clock.Location().String(),
		"AuthEnabled": s.opts.Password != "",
	})
}

// API

type statusResponse struct {
	activity.Snapshot
	Config statusConfig `json:"config"`
}

type statusConfig struct {
	Timezone           string `json:"timezone"`
	WebhooksConfigured int    `json:"webhooksConfigured"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: s.deps.Status.Snapshot(),
		Config: statusConfig{
			Timezone:           s.deps.Clock.Location().String(),
			WebhooksConfigured: s.opts.WebhooksConfigured,
		},
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Log.Entries())
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := s.opts.UpcomingDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			writeJSON(w, http.StatusBadRequest, errorBody("days must be between 1 and 366"))
			return
		}
		days = n
	}

	holidays, err := s.deps.Holidays.Upcoming(r.Context(), s.deps.Clock.Now(), time.Duration(days)*24*time.Hour, s.opts.UpcomingLimit)
	if err != nil {
		slog.Error("Failed to list upcoming holidays", "error", err)
		writeJSON(w, http.StatusOK, errorBody(err.Error()))
		return
	}
	if holidays == nil {
		holidays = []model.HolidayRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "holidays": holidays})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	h, err := s.deps.Checker.TodaysHoliday(r.Context())
	if err != nil {
		slog.Error("Failed to look up today's holiday", "error", err)
		writeJSON(w, http.StatusOK, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "holiday": h})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeOptional(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}

	slog.Info("Manual holiday check requested", "role", body.Role)
	writeJSON(w, http.StatusOK, s.deps.Checker.RunCheck(r.Context(), true, body.Role))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req model.AnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Announcer.Send(r.Context(), req))
}

type scheduleRequest struct {
	ScheduleTime string `json:"scheduleTime"`
	model.AnnouncementRequest
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Message is required"))
		return
	}

	at, err := parseScheduleTime(req.ScheduleTime, s.deps.Clock.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	item, err := s.deps.Scheduler.Schedule(at, req.AnnouncementRequest)
	if errors.Is(err, worker.ErrPastSchedule) {
		writeJSON(w, http.StatusOK, errorBody("Schedule time must be in the future"))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scheduledItem": item})
}

func (s *Server) handleScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scheduled": s.deps.Scheduler.List()})
}

// handleTestNewYear posts a New Year announcement without touching the run
// state.
func (s *Server) handleTestNewYear(w http.ResponseWriter, r *http.Request) {
	year := s.deps.Clock.Now().Year()
	h := model.HolidayRecord{
		Date:        fmt.Sprintf("%d-01-01", year),
		Name:        "New Year's Day",
		Type:        "Public Holiday",
		Description: fmt.Sprintf("New Year %d", year),
	}

	text, ok := s.deps.Checker.Announce(r.Context(), h, "")
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Sent!", "aiMessage": text})
}

// Helpers

// parseScheduleTime accepts RFC 3339 or the browser's datetime-local value,
// which is read in loc.
func parseScheduleTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("scheduleTime is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid scheduleTime %q", value)
}

func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func errorBody(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, tmplName string, data any) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+tmplName)
	if err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), 500)
		return
	}
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, fmt.Sprintf("Execute error: %v", err), 500)
	}
}
