package clock

import (
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout   = "2006-01-02"
	MinuteLayout = "15:04"
)

// Clock reports wall-clock time in one configured IANA location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Clock)

// WithNow replaces the time source, used by tests.
func WithNow(fn func() time.Time) Option {
	return func(c *Clock) {
		c.now = fn
	}
}

// New resolves tz. An empty or unknown zone falls back to UTC with a warning.
func New(tz string, opts ...Option) *Clock {
	c := &Clock{
		loc: Location(tz),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location loads tz, falling back to UTC.
func Location(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		slog.Warn("No timezone configured, using UTC")
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", tz, "error", err)
		return time.UTC
	}
	return loc
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today is the current calendar date as YYYY-MM-DD.
func (c *Clock) Today() string {
	return c.Now().Format(DateLayout)
}
