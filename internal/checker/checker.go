package checker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/discord"
	"github.com/noahxzhu/holiday-notify/internal/holiday"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

type Clock interface {
	Now() time.Time
}

type HolidayFetcher interface {
	FetchCached(ctx context.Context, year int) ([]model.HolidayRecord, error)
}

type MessageComposer interface {
	Compose(ctx context.Context, holidayName, description string) string
}

type Notifier interface {
	Send(ctx context.Context, webhookURL string, msg discord.Message) bool
}

type RunStore interface {
	LastRunDate() string
	MarkRunDate(date string) error
}

type Options struct {
	WebhookURL  string
	Roles       map[string]string
	DefaultRole string
	Team        string
	BotName     string
}

// Checker runs the daily holiday check. It owns the decision of when a day
// counts as done: only after a confirmed "no holiday" or a delivered
// announcement.
type Checker struct {
	clock    Clock
	fetcher  HolidayFetcher
	composer MessageComposer
	notifier Notifier
	store    RunStore
	status   *activity.Status
	opts     Options

	// held for the whole check; automatic callers back off instead of waiting
	running sync.Mutex
}

func New(clk Clock, fetcher HolidayFetcher, composer MessageComposer, notifier Notifier, store RunStore, status *activity.Status, opts Options) *Checker {
	if opts.DefaultRole == "" {
		opts.DefaultRole = "everyone"
	}
	if opts.Team == "" {
		opts.Team = "Digital Labour"
	}
	if opts.BotName == "" {
		opts.BotName = "Holiday Bot"
	}
	return &Checker{
		clock:    clk,
		fetcher:  fetcher,
		composer: composer,
		notifier: notifier,
		store:    store,
		status:   status,
		opts:     opts,
	}
}

// IsDue reports whether today has not been conclusively checked yet.
func (c *Checker) IsDue() bool {
	return c.store.LastRunDate() != c.clock.Now().Format(clock.DateLayout)
}

// RunCheck runs one holiday check. Automatic runs (manual=false) are skipped
// when today is already done or another check is in progress; manual runs
// always execute. It never panics.
func (c *Checker) RunCheck(ctx context.Context, manual bool, role string) (res model.CheckResult) {
	if manual {
		c.running.Lock()
	} else if !c.running.TryLock() {
		slog.Info("Holiday check already in progress, skipping")
		return model.CheckResult{Success: true, Outcome: model.OutcomeSkipped, Message: "Check already in progress"}
	}
	defer c.running.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Holiday check panicked", "panic", r, "stack", string(debug.Stack()))
			res = model.CheckResult{
				Success: false,
				Outcome: model.OutcomeUnexpectedFail,
				Message: fmt.Sprintf("unexpected error: %v", r),
			}
		}
	}()

	return c.check(ctx, manual, role)
}

func (c *Checker) check(ctx context.Context, manual bool, role string) model.CheckResult {
	now := c.clock.Now()
	today := now.Format(clock.DateLayout)

	trigger := "auto"
	if manual {
		trigger = "manual"
	}
	slog.Info("Holiday check started", "trigger", trigger, "date", today)

	if !manual && c.store.LastRunDate() == today {
		slog.Info("Already checked today, skipping", "date", today)
		return model.CheckResult{Success: true, Outcome: model.OutcomeSkipped, Message: "Already checked today"}
	}

	if c.status != nil {
		c.status.RecordCheck(now)
	}

	holidays, err := c.fetcher.FetchCached(ctx, now.Year())
	if err != nil {
		slog.Error("Could not fetch holiday data", "date", today, "error", err)
		return model.CheckResult{
			Success: false,
			Outcome: model.OutcomeFetchFailed,
			Message: "Could not fetch holiday data: " + err.Error(),
		}
	}

	slog.Info("Searching holidays", "count", len(holidays), "date", today)
	h, ok := holiday.FindByDate(holidays, today)
	if !ok {
		slog.Info("No holiday today", "date", today)
		c.markDone(today)
		return model.CheckResult{Success: true, Outcome: model.OutcomeNoHoliday, Message: "No holiday today"}
	}

	slog.Info("Holiday found", "name", h.Name, "date", today)
	text, sent := c.Announce(ctx, h, role)
	if !sent {
		slog.Error("Holiday announcement failed, day stays open for retry", "name", h.Name, "date", today)
		return model.CheckResult{
			Success:          false,
			Outcome:          model.OutcomeSendFailed,
			Message:          "Failed to send announcement for " + h.Name,
			Holiday:          &h,
			AnnouncementText: text,
		}
	}

	c.markDone(today)
	return model.CheckResult{
		Success:          true,
		Outcome:          model.OutcomeHolidaySent,
		Message:          "Sent: " + h.Name,
		Holiday:          &h,
		AnnouncementText: text,
	}
}

// markDone persists today as handled. A failed write is logged only: the
// in-memory value still holds for this process.
func (c *Checker) markDone(today string) {
	if err := c.store.MarkRunDate(today); err != nil {
		slog.Error("Failed to persist last run date", "date", today, "error", err)
	}
}

// Announce composes and posts the announcement for h. It does not touch
// the run state.
func (c *Checker) Announce(ctx context.Context, h model.HolidayRecord, role string) (string, bool) {
	text := c.composer.Compose(ctx, h.Name, h.Description)
	p := PickPresentation(h.Name)

	if role == "" {
		role = c.opts.DefaultRole
	}
	msg := discord.Message{
		Content:     discord.Mention(c.opts.Roles, role),
		Username:    c.opts.BotName,
		Title:       "🎊 **Holiday Announcement** 🎊",
		Description: fmt.Sprintf("**%s**\n\n%s\n\n— *The %s Team*", h.Name, text, c.opts.Team),
		Color:       p.Color,
		ImageURL:    p.ImageURL,
	}

	slog.Info("Sending holiday announcement", "name", h.Name, "presentation", p.Key)
	if !c.notifier.Send(ctx, c.opts.WebhookURL, msg) {
		return text, false
	}
	if c.status != nil {
		c.status.IncHolidayAnnouncements()
	}
	return text, true
}

// TodaysHoliday looks up today's holiday without sending anything.
func (c *Checker) TodaysHoliday(ctx context.Context) (*model.HolidayRecord, error) {
	now := c.clock.Now()
	holidays, err := c.fetcher.FetchCached(ctx, now.Year())
	if err != nil {
		return nil, err
	}
	h, ok := holiday.FindByDate(holidays, now.Format(clock.DateLayout))
	if !ok {
		return nil, nil
	}
	return &h, nil
}
