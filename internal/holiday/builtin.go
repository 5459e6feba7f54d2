package holiday

import (
	"strconv"
	"strings"

	"github.com/noahxzhu/holiday-notify/internal/model"
)

var builtinHolidays = []model.HolidayRecord{
	{Date: "2026-01-01", Name: "New Year's Day", Type: "Public Holiday", Description: "New Year 2026"},
	{Date: "2026-01-26", Name: "Republic Day", Type: "National Holiday", Description: "Republic Day of India"},
	{Date: "2026-03-14", Name: "Holi", Type: "Festival", Description: "Festival of Colors"},
	{Date: "2026-04-02", Name: "Good Friday", Type: "Public Holiday", Description: "Good Friday"},
	{Date: "2026-08-15", Name: "Independence Day", Type: "National Holiday", Description: "Independence Day of India"},
	{Date: "2026-10-02", Name: "Gandhi Jayanti", Type: "National Holiday", Description: "Birth of Mahatma Gandhi"},
	{Date: "2026-10-24", Name: "Dussehra", Type: "Festival", Description: "Victory of Good over Evil"},
	{Date: "2026-11-13", Name: "Diwali", Type: "Festival", Description: "Festival of Lights"},
	{Date: "2026-12-25", Name: "Christmas", Type: "Public Holiday", Description: "Christmas Day"},
}

// Builtin is the last-resort calendar used when no live source answers.
func Builtin(year int) []model.HolidayRecord {
	return ForYear(builtinHolidays, year)
}

// ForYear keeps the records dated in year.
func ForYear(list []model.HolidayRecord, year int) []model.HolidayRecord {
	prefix := strconv.Itoa(year) + "-"
	var out []model.HolidayRecord
	for _, h := range list {
		if strings.HasPrefix(h.Date, prefix) {
			out = append(out, h)
		}
	}
	return out
}

// FindByDate returns the first record dated date.
func FindByDate(list []model.HolidayRecord, date string) (model.HolidayRecord, bool) {
	for _, h := range list {
		if h.Date == date {
			return h, true
		}
	}
	return model.HolidayRecord{}, false
}
