package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/noahxzhu/holiday-notify/internal/model"
)

// Store holds the run state in memory and mirrors it to a JSON file.
// The in-memory copy is authoritative; writes to disk are best effort.
type Store struct {
	mu       sync.RWMutex
	filePath string
	Data     *model.RunState
}

func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
		Data:     defaultState(),
	}
}

func defaultState() *model.RunState {
	return &model.RunState{
		HolidaysCache:          map[string]model.HolidayCacheEntry{},
		LastSuccessfulHolidays: []model.HolidayRecord{},
	}
}

// Load reads the state file. A missing file is initialized with defaults
// and written out. Any other failure leaves the defaults in place and is
// returned so the caller can log it.
func (s *Store) Load() error {
	s.mu.Lock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		s.Data = defaultState()
		s.mu.Unlock()
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("No state file found, creating one", "path", s.filePath)
			return s.Save()
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if len(data) == 0 {
		s.Data = defaultState()
		s.mu.Unlock()
		return nil
	}

	st := defaultState()
	if err := json.Unmarshal(data, st); err != nil {
		s.Data = defaultState()
		s.mu.Unlock()
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	if st.HolidaysCache == nil {
		st.HolidaysCache = map[string]model.HolidayCacheEntry{}
	}
	if st.LastSuccessfulHolidays == nil {
		st.LastSuccessfulHolidays = []model.HolidayRecord{}
	}
	s.Data = st
	s.mu.Unlock()

	slog.Info("State loaded", "path", s.filePath, "last_run_date", st.LastRunDate, "cached_years", len(st.HolidaysCache))
	return nil
}

// Save writes the full snapshot to a temp file and renames it over the
// state file, so readers never see a half-written document.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.Data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *Store) LastRunDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Data.LastRunDate
}

// MarkRunDate records date as conclusively handled and persists it.
// Dates earlier than the current value are ignored.
func (s *Store) MarkRunDate(date string) error {
	s.mu.Lock()
	if s.Data.LastRunDate != "" && date < s.Data.LastRunDate {
		current := s.Data.LastRunDate
		s.mu.Unlock()
		slog.Warn("Refusing to move last run date backwards", "current", current, "requested", date)
		return nil
	}
	s.Data.LastRunDate = date
	s.mu.Unlock()
	return s.Save()
}

// CachedHolidays returns the cached list for year, if non-empty.
func (s *Store) CachedHolidays(year int) ([]model.HolidayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.Data.HolidaysCache[strconv.Itoa(year)]
	if !ok || len(entry.Holidays) == 0 {
		return nil, false
	}
	return slices.Clone(entry.Holidays), true
}

// PutHolidays caches a live fetch for year and makes it the last known good list.
func (s *Store) PutHolidays(year int, holidays []model.HolidayRecord, fetchedAt time.Time) error {
	s.mu.Lock()
	s.Data.HolidaysCache[strconv.Itoa(year)] = model.HolidayCacheEntry{
		Holidays:  slices.Clone(holidays),
		FetchedAt: fetchedAt,
	}
	s.Data.LastSuccessfulHolidays = slices.Clone(holidays)
	s.mu.Unlock()
	return s.Save()
}

func (s *Store) LastSuccessfulHolidays() []model.HolidayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.Data.LastSuccessfulHolidays)
}

func (s *Store) SetLastSuccessfulHolidays(holidays []model.HolidayRecord) error {
	s.mu.Lock()
	s.Data.LastSuccessfulHolidays = slices.Clone(holidays)
	s.mu.Unlock()
	return s.Save()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := model.RunState{
		LastRunDate:            s.Data.LastRunDate,
		HolidaysCache:          make(map[string]model.HolidayCacheEntry, len(s.Data.HolidaysCache)),
		LastSuccessfulHolidays: slices.Clone(s.Data.LastSuccessfulHolidays),
	}
	for k, v := range s.Data.HolidaysCache {
		out.HolidaysCache[k] = model.HolidayCacheEntry{Holidays: slices.Clone(v.Holidays), FetchedAt: v.FetchedAt}
	}
	return out
}
