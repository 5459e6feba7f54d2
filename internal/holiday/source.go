package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

// Source fetches the holiday calendar of one year. An empty list is a failure.
type Source interface {
	Name() string
	FetchHolidays(ctx context.Context, year int) ([]model.HolidayRecord, error)
}

var errEmptyList = errors.New("empty holiday list")

const (
	calendarificURL = "https://calendarific.com/api/v2/holidays"
	abstractURL     = "https://holidays.abstractapi.com/v1/"
)

type Calendarific struct {
	client  *resty.Client
	BaseURL string
	APIKey  string
	Country string
}

func NewCalendarific(apiKey, country string, timeout time.Duration) *Calendarific {
	return &Calendarific{
		client:  resty.New().SetTimeout(timeout),
		BaseURL: calendarificURL,
		APIKey:  apiKey,
		Country: country,
	}
}

func (c *Calendarific) Name() string { return "calendarific" }

type calendarificResponse struct {
	Response struct {
		Holidays []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Date        struct {
				ISO string `json:"iso"`
			} `json:"date"`
			Type []string `json:"type"`
		} `json:"holidays"`
	} `json:"response"`
}

func (c *Calendarific) FetchHolidays(ctx context.Context, year int) ([]model.HolidayRecord, error) {
	slog.Info("Fetching holidays", "source", c.Name(), "year", year, "country", c.Country)

	var out calendarificResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": c.APIKey,
			"country": c.Country,
			"year":    strconv.Itoa(year),
		}).
		SetResult(&out).
		Get(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("calendarific request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calendarific api error: status %s", resp.Status())
	}

	holidays := make([]model.HolidayRecord, 0, len(out.Response.Holidays))
	for _, h := range out.Response.Holidays {
		date, _, _ := strings.Cut(h.Date.ISO, "T")
		rec := model.HolidayRecord{
			Date:        date,
			Name:        h.Name,
			Type:        "Holiday",
			Description: h.Description,
		}
		if len(h.Type) > 0 && h.Type[0] != "" {
			rec.Type = h.Type[0]
		}
		if rec.Description == "" {
			rec.Description = h.Name
		}
		holidays = append(holidays, rec)
	}
	if len(holidays) == 0 {
		return nil, errEmptyList
	}
	return holidays, nil
}

type Abstract struct {
	client  *resty.Client
	BaseURL string
	APIKey  string
	Country string
}

func NewAbstract(apiKey, country string, timeout time.Duration) *Abstract {
	return &Abstract{
		client:  resty.New().SetTimeout(timeout),
		BaseURL: abstractURL,
		APIKey:  apiKey,
		Country: country,
	}
}

func (a *Abstract) Name() string { return "abstractapi" }

type abstractHoliday struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
}

func (a *Abstract) FetchHolidays(ctx context.Context, year int) ([]model.HolidayRecord, error) {
	slog.Info("Fetching holidays", "source", a.Name(), "year", year, "country", a.Country)

	var out []abstractHoliday
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": a.APIKey,
			"country": a.Country,
			"year":    strconv.Itoa(year),
		}).
		SetResult(&out).
		Get(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("abstractapi request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("abstractapi error: status %s", resp.Status())
	}

	holidays := make([]model.HolidayRecord, 0, len(out))
	for _, h := range out {
		date, ok := normalizeDate(h.Date)
		if !ok {
			slog.Debug("Skipping holiday with unparseable date", "source", a.Name(), "date", h.Date)
			continue
		}
		rec := model.HolidayRecord{
			Date:        date,
			Name:        h.Name,
			Type:        h.Type,
			Description: h.Description,
		}
		if rec.Type == "" {
			rec.Type = "Holiday"
		}
		if rec.Description == "" {
			rec.Description = h.Name
		}
		holidays = append(holidays, rec)
	}
	if len(holidays) == 0 {
		return nil, errEmptyList
	}
	return holidays, nil
}

// normalizeDate accepts YYYY-MM-DD and MM/DD/YYYY.
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{clock.DateLayout, "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clock.DateLayout), true
		}
	}
	return "", false
}

// Chain tries each source in order and returns the first non-empty list.
type Chain []Source

func (c Chain) Name() string { return "chain" }

func (c Chain) FetchHolidays(ctx context.Context, year int) ([]model.HolidayRecord, error) {
	if len(c) == 0 {
		return nil, errors.New("no holiday sources configured")
	}

	var errs []error
	for _, src := range c {
		list, err := src.FetchHolidays(ctx, year)
		if err == nil && len(list) == 0 {
			err = errEmptyList
		}
		if err == nil {
			slog.Info("Fetched holidays", "source", src.Name(), "year", year, "count", len(list))
			return list, nil
		}
		slog.Warn("Holiday source failed", "source", src.Name(), "year", year, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return nil, errors.Join(errs...)
}
