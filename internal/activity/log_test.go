package activity

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_KeepsNewestEntries(t *testing.T) {
	l := NewLog(3, 2)
	for i := 0; i < 5; i++ {
		l.Add(Entry{Type: "INFO", Message: fmt.Sprintf("m%d", i)})
	}

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "m4", entries[0].Message)
	assert.Equal(t, "m2", entries[2].Message)
}

func TestLog_ErrorsAreCapped(t *testing.T) {
	l := NewLog(10, 2)
	for i := 0; i < 4; i++ {
		l.Add(Entry{Type: "ERROR", Message: fmt.Sprintf("e%d", i)})
	}
	l.Add(Entry{Type: "WARNING", Message: "w"})

	errs := l.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "e2", errs[0].Message)
	assert.Equal(t, "e3", errs[1].Message)
}

func TestHandler_RecordsSlogOutput(t *testing.T) {
	l := NewLog(10, 10)
	logger := slog.New(l.Handler(slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("component", "checker").Info("Holiday found", "name", "Holi")
	logger.WithGroup("fetch").Error("Source failed", "year", 2026)
	logger.Warn("Using fallback")

	entries := l.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "WARNING", entries[0].Type)
	assert.Equal(t, "ERROR", entries[1].Type)
	assert.Equal(t, "Source failed fetch.year=2026", entries[1].Message)
	assert.Equal(t, "INFO", entries[2].Type)
	assert.Equal(t, "Holiday found component=checker name=Holi", entries[2].Message)

	assert.Len(t, l.Errors(), 1)
}

func TestStatus_Snapshot(t *testing.T) {
	l := NewLog(10, 10)
	s := NewStatus(l)

	snap := s.Snapshot()
	assert.Nil(t, snap.LastCheck)
	assert.NotNil(t, snap.Errors)

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetRunning(true)
	s.RecordCheck(at)
	s.IncHolidayAnnouncements()
	s.IncCustomAnnouncements()
	s.IncCustomAnnouncements()
	l.Add(Entry{Type: "ERROR", Message: "boom"})

	snap = s.Snapshot()
	assert.True(t, snap.Running)
	require.NotNil(t, snap.LastCheck)
	assert.True(t, snap.LastCheck.Equal(at))
	assert.Equal(t, 1, snap.TotalHolidayAnnouncements)
	assert.Equal(t, 2, snap.TotalCustomAnnouncements)
	assert.Len(t, snap.Errors, 1)
}
