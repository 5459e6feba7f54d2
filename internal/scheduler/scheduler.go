package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/config"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

type Checker interface {
	RunCheck(ctx context.Context, manual bool, role string) model.CheckResult
	IsDue() bool
}

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type Options struct {
	Cron          string        // fixed daily trigger, e.g. "0 0 * * *"
	GuardTime     string        // HH:MM the minute guard watches for
	GuardInterval time.Duration // how often the minute guard polls
	TestMode      bool          // startup check runs as a manual check
}

// Scheduler drives the checker from a cron entry and a minute guard, plus
// one catch-up run at startup. Both triggers call the same automatic entry
// point; per-day dedupe is the checker's job.
type Scheduler struct {
	checker Checker
	clock   Clock
	status  *activity.Status
	opts    Options

	cron    *cron.Cron
	entryID cron.EntryID

	mu           sync.Mutex
	lastGuardKey string
}

func New(checker Checker, clk Clock, status *activity.Status, opts Options) (*Scheduler, error) {
	if opts.GuardTime == "" {
		opts.GuardTime = "00:00"
	}
	if opts.GuardInterval <= 0 {
		opts.GuardInterval = 30 * time.Second
	}
	if _, err := config.CronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", opts.Cron, err)
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	return &Scheduler{
		checker: checker,
		clock:   clk,
		status:  status,
		opts:    opts,
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLocation(clk.Location()),
			cron.WithLogger(logger),
		),
	}, nil
}

// Start runs the catch-up check, then both triggers until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.status != nil {
		s.status.SetRunning(true)
		defer s.status.SetRunning(false)
	}

	s.CatchUp(ctx)

	id, err := s.cron.AddFunc(s.opts.Cron, func() { s.runScheduled(ctx) })
	if err != nil {
		return fmt.Errorf("failed to register daily check: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.publishNext()
	slog.Info("Scheduler started", "cron", s.opts.Cron, "timezone", s.clock.Location().String(), "guard_time", s.opts.GuardTime, "guard_interval", s.opts.GuardInterval)

	ticker := time.NewTicker(s.opts.GuardInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopped := s.cron.Stop()
			<-stopped.Done()
			slog.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.GuardTick(ctx, s.clock.Now())
		}
	}
}

// CatchUp runs one check at startup when today is still open, so a restart
// never loses a day.
func (s *Scheduler) CatchUp(ctx context.Context) {
	if s.opts.TestMode {
		slog.Info("Test mode: running manual check at startup")
		logResult("startup", s.checker.RunCheck(ctx, true, ""))
		return
	}
	if !s.checker.IsDue() {
		slog.Info("Today already checked, no catch-up needed")
		return
	}
	slog.Info("Running startup catch-up check")
	logResult("startup", s.checker.RunCheck(ctx, false, ""))
}

// GuardTick fires the check when now is the guard minute and this minute
// has not fired yet in this process. It reports whether a check ran.
func (s *Scheduler) GuardTick(ctx context.Context, now time.Time) bool {
	now = now.In(s.clock.Location())
	hhmm := now.Format(clock.MinuteLayout)
	if hhmm != s.opts.GuardTime {
		return false
	}

	key := now.Format(clock.DateLayout) + " " + hhmm
	s.mu.Lock()
	if key == s.lastGuardKey {
		s.mu.Unlock()
		return false
	}
	s.lastGuardKey = key
	s.mu.Unlock()

	if !s.checker.IsDue() {
		return false
	}
	slog.Info("Minute guard triggering check", "key", key)
	logResult("guard", s.checker.RunCheck(ctx, false, ""))
	return true
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	logResult("cron", s.checker.RunCheck(ctx, false, ""))
	s.publishNext()
}

func (s *Scheduler) publishNext() {
	if s.status == nil {
		return
	}
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		s.status.SetNextCheck(next)
	}
}

func logResult(trigger string, res model.CheckResult) {
	if res.Success {
		slog.Info("Holiday check finished", "trigger", trigger, "outcome", res.Outcome, "message", res.Message)
		return
	}
	slog.Error("Holiday check failed", "trigger", trigger, "outcome", res.Outcome, "message", res.Message)
}
