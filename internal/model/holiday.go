package model

import "time"

// HolidayRecord is one entry of a holiday calendar. Date is YYYY-MM-DD.
type HolidayRecord struct {
	Date        string `json:"date"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type HolidayCacheEntry struct {
	Holidays  []HolidayRecord `json:"holidays"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// RunState is the durable record written to the state file.
type RunState struct {
	LastRunDate            string                       `json:"lastRunDate,omitempty"`
	HolidaysCache          map[string]HolidayCacheEntry `json:"holidaysCache"`
	LastSuccessfulHolidays []HolidayRecord              `json:"lastSuccessfulHolidays"`
}

type Outcome string

const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeNoHoliday      Outcome = "no_holiday_today"
	OutcomeHolidaySent    Outcome = "holiday_sent"
	OutcomeSendFailed     Outcome = "holiday_send_failed"
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeUnexpectedFail Outcome = "error"
)

// CheckResult is what a daily check reports back to its caller.
type CheckResult struct {
	Success          bool           `json:"success"`
	Outcome          Outcome        `json:"outcome"`
	Message          string         `json:"message"`
	Holiday          *HolidayRecord `json:"holiday,omitempty"`
	AnnouncementText string         `json:"aiMessage,omitempty"`
}
