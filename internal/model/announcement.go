package model

import "time"

type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusSent      ScheduleStatus = "sent"
	StatusFailed    ScheduleStatus = "failed"
)

// AnnouncementRequest is a free-form announcement posted from the dashboard.
type AnnouncementRequest struct {
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Roles          []string `json:"roles"`
	ImageURL       string   `json:"imageUrl"`
	WebhookChannel string   `json:"webhookChannel"`
	UseAI          bool     `json:"useAI"`
}

type AnnouncementResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ScheduledAnnouncement struct {
	ID           string              `json:"id"`
	ScheduleTime time.Time           `json:"scheduleTime"`
	Data         AnnouncementRequest `json:"data"`
	Status       ScheduleStatus      `json:"status"`
	SentAt       time.Time           `json:"sentAt,omitzero"`
	Error        string              `json:"error,omitempty"`
}
