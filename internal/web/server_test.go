package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/model"
	"github.com/noahxzhu/holiday-notify/internal/worker"
)

type fakeChecker struct {
	mu        sync.Mutex
	roles     []string
	announced []model.HolidayRecord
	today     *model.HolidayRecord
}

func (f *fakeChecker) RunCheck(_ context.Context, manual bool, role string) model.CheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, role)
	return model.CheckResult{Success: true, Outcome: model.OutcomeNoHoliday, Message: "No holiday today"}
}

func (f *fakeChecker) TodaysHoliday(context.Context) (*model.HolidayRecord, error) {
	return f.today, nil
}

func (f *fakeChecker) Announce(_ context.Context, h model.HolidayRecord, _ string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, h)
	return "Happy New Year!", true
}

type fakeLister struct {
	within time.Duration
}

func (f *fakeLister) Upcoming(_ context.Context, _ time.Time, within time.Duration, _ int) ([]model.HolidayRecord, error) {
	f.within = within
	return []model.HolidayRecord{{Date: "2026-01-26", Name: "Republic Day"}}, nil
}

type fakeAnnouncer struct {
	reqs []model.AnnouncementRequest
}

func (f *fakeAnnouncer) Send(_ context.Context, req model.AnnouncementRequest) model.AnnouncementResult {
	f.reqs = append(f.reqs, req)
	return model.AnnouncementResult{Success: true}
}

type harness struct {
	srv       *Server
	checker   *fakeChecker
	lister    *fakeLister
	announcer *fakeAnnouncer
	worker    *worker.Worker
	log       *activity.Log
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clk := clock.New("Asia/Kolkata", clock.WithNow(func() time.Time { return now }))
	log := activity.NewLog(200, 20)

	h := &harness{
		checker:   &fakeChecker{},
		lister:    &fakeLister{},
		announcer: &fakeAnnouncer{},
		log:       log,
	}
	h.worker = worker.NewWorker(h.announcer, worker.WithNow(func() time.Time { return now }))
	h.srv = NewServer(Deps{
		Checker:   h.checker,
		Holidays:  h.lister,
		Announcer: h.announcer,
		Scheduler: h.worker,
		Clock:     clk,
		Status:    activity.NewStatus(log),
		Log:       log,
	}, opts)
	return h
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStatus(t *testing.T) {
	h := newHarness(t, Options{WebhooksConfigured: 2})

	rec := h.do(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["running"])
	assert.Nil(t, body["lastCheck"])
	assert.Equal(t, []any{}, body["errors"])
	assert.Equal(t, map[string]any{"timezone": "Asia/Kolkata", "webhooksConfigured": float64(2)}, body["config"])
}

func TestLogs(t *testing.T) {
	h := newHarness(t, Options{})

	rec := h.do(http.MethodGet, "/api/logs", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	h.log.Add(activity.Entry{Type: "INFO", Message: "hello"})
	var entries []activity.Entry
	require.NoError(t, json.Unmarshal(h.do(http.MethodGet, "/api/logs", "").Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
}

func TestHolidayEndpoints(t *testing.T) {
	h := newHarness(t, Options{})

	body := decode(t, h.do(http.MethodGet, "/api/holidays/upcoming", ""))
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["holidays"], 1)
	assert.Equal(t, 30*24*time.Hour, h.lister.within)

	h.do(http.MethodGet, "/api/holidays/upcoming?days=7", "")
	assert.Equal(t, 7*24*time.Hour, h.lister.within)

	rec := h.do(http.MethodGet, "/api/holidays/upcoming?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = decode(t, h.do(http.MethodGet, "/api/holidays/today", ""))
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["holiday"])

	h.checker.today = &model.HolidayRecord{Date: "2026-01-10", Name: "Test Day"}
	body = decode(t, h.do(http.MethodGet, "/api/holidays/today", ""))
	assert.Equal(t, "Test Day", body["holiday"].(map[string]any)["name"])
}

func TestTrigger(t *testing.T) {
	h := newHarness(t, Options{})

	body := decode(t, h.do(http.MethodPost, "/api/trigger/holiday", `{"role":"labour"}`))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, string(model.OutcomeNoHoliday), body["outcome"])

	h.do(http.MethodPost, "/api/trigger/holiday", "")
	assert.Equal(t, []string{"labour", ""}, h.checker.roles)

	rec := h.do(http.MethodPost, "/api/trigger/holiday", `{"role":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAndSchedule(t *testing.T) {
	h := newHarness(t, Options{SendBurst: 10})

	body := decode(t, h.do(http.MethodPost, "/api/announcement/send", `{"message":"hi","roles":["labour"],"webhookChannel":"updates"}`))
	assert.Equal(t, true, body["success"])
	require.Len(t, h.announcer.reqs, 1)
	assert.Equal(t, []string{"labour"}, h.announcer.reqs[0].Roles)
	assert.Equal(t, "updates", h.announcer.reqs[0].WebhookChannel)

	// datetime-local values are read in the configured zone.
	body = decode(t, h.do(http.MethodPost, "/api/announcement/schedule", `{"message":"later","title":"T","scheduleTime":"2026-01-11T09:00"}`))
	require.Equal(t, true, body["success"])
	item := body["scheduledItem"].(map[string]any)
	assert.Equal(t, "scheduled", item["status"])
	assert.Equal(t, "2026-01-11T09:00:00+05:30", item["scheduleTime"])

	body = decode(t, h.do(http.MethodPost, "/api/announcement/schedule", `{"message":"late","scheduleTime":"2026-01-01T00:00:00Z"}`))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Schedule time must be in the future", body["error"])

	rec := h.do(http.MethodPost, "/api/announcement/schedule", `{"message":"x","scheduleTime":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = decode(t, h.do(http.MethodGet, "/api/announcements/scheduled", ""))
	scheduled := body["scheduled"].([]any)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "T", scheduled[0].(map[string]any)["data"].(map[string]any)["title"])
}

func TestTestNewYear(t *testing.T) {
	h := newHarness(t, Options{})

	body := decode(t, h.do(http.MethodPost, "/api/test/newyear", ""))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Sent!", body["message"])
	require.Len(t, h.checker.announced, 1)
	assert.Equal(t, "2026-01-01", h.checker.announced[0].Date)
	assert.Equal(t, "New Year's Day", h.checker.announced[0].Name)
}

func TestThrottle(t *testing.T) {
	h := newHarness(t, Options{SendInterval: time.Hour, SendBurst: 2})

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/trigger/holiday", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/announcement/send", `{"message":"hi"}`).Code)

	rec := h.do(http.MethodPost, "/api/trigger/holiday", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	// Reads are not throttled.
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/status", "").Code)
}

func TestAuth(t *testing.T) {
	h := newHarness(t, Options{Password: "s3cret"})

	rec := h.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/login", "").Code)

	login := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.srv.ServeHTTP(rec, req)
		return rec
	}

	rec = login("wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")

	rec = login("s3cret")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/status", "", session).Code)
	page := h.do(http.MethodGet, "/", "", session)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Asia/Kolkata")

	h.do(http.MethodGet, "/logout", "", session)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/status", "", session).Code)
}

func TestNoPasswordSkipsLogin(t *testing.T) {
	h := newHarness(t, Options{})

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/", "").Code)
	rec := h.do(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}
