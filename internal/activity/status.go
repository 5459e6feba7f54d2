package activity

import (
	"sync"
	"time"
)

// Status is the process-wide counters shown on the dashboard. It is not
// persisted.
type Status struct {
	mu               sync.RWMutex
	log              *Log
	running          bool
	lastCheck        time.Time
	nextCheck        time.Time
	holidayAnnounced int
	customAnnounced  int
}

type Snapshot struct {
	Running                   bool       `json:"running"`
	LastCheck                 *time.Time `json:"lastCheck"`
	NextScheduledCheck        *time.Time `json:"nextScheduledCheck"`
	TotalHolidayAnnouncements int        `json:"totalHolidayAnnouncements"`
	TotalCustomAnnouncements  int        `json:"totalCustomAnnouncements"`
	Errors                    []Entry    `json:"errors"`
}

func NewStatus(log *Log) *Status {
	return &Status{log: log}
}

func (s *Status) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

func (s *Status) RecordCheck(at time.Time) {
	s.mu.Lock()
	s.lastCheck = at
	s.mu.Unlock()
}

func (s *Status) SetNextCheck(at time.Time) {
	s.mu.Lock()
	s.nextCheck = at
	s.mu.Unlock()
}

func (s *Status) IncHolidayAnnouncements() {
	s.mu.Lock()
	s.holidayAnnounced++
	s.mu.Unlock()
}

func (s *Status) IncCustomAnnouncements() {
	s.mu.Lock()
	s.customAnnounced++
	s.mu.Unlock()
}

func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Running:                   s.running,
		TotalHolidayAnnouncements: s.holidayAnnounced,
		TotalCustomAnnouncements:  s.customAnnounced,
		Errors:                    []Entry{},
	}
	if !s.lastCheck.IsZero() {
		t := s.lastCheck
		snap.LastCheck = &t
	}
	if !s.nextCheck.IsZero() {
		t := s.nextCheck
		snap.NextScheduledCheck = &t
	}
	if s.log != nil {
		snap.Errors = s.log.Errors()
	}
	return snap
}
