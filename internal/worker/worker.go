package worker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noahxzhu/holiday-notify/internal/model"
)

var ErrPastSchedule = errors.New("schedule time must be in the future")

type Sender interface {
	Send(ctx context.Context, req model.AnnouncementRequest) model.AnnouncementResult
}

// Worker holds one-shot scheduled announcements in memory and sends each at
// its time. Nothing here survives a restart.
type Worker struct {
	sender     Sender
	now        func() time.Time
	updateChan chan struct{}

	mu    sync.Mutex
	items []*model.ScheduledAnnouncement
}

type Option func(*Worker)

func WithNow(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func NewWorker(sender Sender, opts ...Option) *Worker {
	w := &Worker{
		sender:     sender,
		now:        time.Now,
		updateChan: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Schedule queues req for at and wakes the loop.
func (w *Worker) Schedule(at time.Time, req model.AnnouncementRequest) (model.ScheduledAnnouncement, error) {
	if !at.After(w.now()) {
		return model.ScheduledAnnouncement{}, ErrPastSchedule
	}

	item := &model.ScheduledAnnouncement{
		ID:           uuid.New().String(),
		ScheduleTime: at,
		Data:         req,
		Status:       model.StatusScheduled,
	}

	w.mu.Lock()
	w.items = append(w.items, item)
	w.mu.Unlock()

	slog.Info("Announcement scheduled", "id", item.ID, "at", at.Format(time.RFC3339), "title", req.Title)
	w.Refresh()
	return *item, nil
}

// List returns copies of every scheduled item, soonest first.
func (w *Worker) List() []model.ScheduledAnnouncement {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.ScheduledAnnouncement, 0, len(w.items))
	for _, item := range w.items {
		out = append(out, *item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduleTime.Before(out[j].ScheduleTime)
	})
	return out
}

// Refresh signals the worker to re-evaluate the schedule immediately
func (w *Worker) Refresh() {
	select {
	case w.updateChan <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) {
	slog.Info("Announcement worker started")

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		nextRun := w.checkAndProcess(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if nextRun.IsZero() {
			slog.Debug("No scheduled announcements, worker idle")
		} else {
			wait := max(nextRun.Sub(w.now()), 0)
			timer.Reset(wait)
			slog.Debug("Next announcement due", "in", wait, "at", nextRun.Format(time.RFC3339))
		}

		select {
		case <-ctx.Done():
			slog.Info("Announcement worker stopped")
			return
		case <-w.updateChan:
		case <-timer.C:
		}
	}
}

// checkAndProcess sends every due item and returns the time of the next
// pending one, or zero when nothing is pending.
func (w *Worker) checkAndProcess(ctx context.Context) time.Time {
	now := w.now()

	w.mu.Lock()
	var due []*model.ScheduledAnnouncement
	var earliestNext time.Time
	for _, item := range w.items {
		if item.Status != model.StatusScheduled {
			continue
		}
		if !now.Before(item.ScheduleTime) {
			due = append(due, item)
			continue
		}
		if earliestNext.IsZero() || item.ScheduleTime.Before(earliestNext) {
			earliestNext = item.ScheduleTime
		}
	}
	w.mu.Unlock()

	for _, item := range due {
		slog.Info("Sending scheduled announcement", "id", item.ID, "scheduled", item.ScheduleTime.Format(time.RFC3339), "delay", now.Sub(item.ScheduleTime))
		res := w.sender.Send(ctx, item.Data)

		w.mu.Lock()
		item.SentAt = w.now()
		if res.Success {
			item.Status = model.StatusSent
		} else {
			item.Status = model.StatusFailed
			item.Error = res.Error
		}
		w.mu.Unlock()

		if !res.Success {
			slog.Error("Scheduled announcement failed", "id", item.ID, "error", res.Error)
		}
	}

	return earliestNext
}
