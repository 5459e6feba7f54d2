package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/discord"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

const (
	defaultTitle = "📢 **Alert — Important Update**"
	customColor  = 0xFF6B35
)

type Enhancer interface {
	Enhance(ctx context.Context, message string) string
}

type Notifier interface {
	SendMessage(ctx context.Context, webhookURL string, msg discord.Message) error
}

type Options struct {
	Webhooks       map[string]string // channel name (lower case) -> URL
	DefaultChannel string
	Roles          map[string]string
	Team           string
	BotName        string
}

// Service posts free-form announcements to a named webhook channel.
type Service struct {
	enhancer Enhancer
	notifier Notifier
	status   *activity.Status
	opts     Options
}

func NewService(enhancer Enhancer, notifier Notifier, status *activity.Status, opts Options) *Service {
	if opts.DefaultChannel == "" {
		opts.DefaultChannel = "announcements"
	}
	if opts.Team == "" {
		opts.Team = "Digital Labour"
	}
	if opts.BotName == "" {
		opts.BotName = "Announcement Bot"
	}
	return &Service{enhancer: enhancer, notifier: notifier, status: status, opts: opts}
}

// Webhook resolves a channel name, falling back to the default channel.
func (s *Service) Webhook(channel string) string {
	if url := s.opts.Webhooks[strings.ToLower(strings.TrimSpace(channel))]; url != "" {
		return url
	}
	return s.opts.Webhooks[s.opts.DefaultChannel]
}

func (s *Service) Send(ctx context.Context, req model.AnnouncementRequest) model.AnnouncementResult {
	if strings.TrimSpace(req.Message) == "" {
		return model.AnnouncementResult{Success: false, Error: "Message is required"}
	}

	url := s.Webhook(req.WebhookChannel)
	if url == "" {
		slog.Warn("Custom announcement declined, webhook not configured", "channel", req.WebhookChannel)
		return model.AnnouncementResult{Success: false, Error: "Webhook not configured"}
	}

	message := req.Message
	if req.UseAI && s.enhancer != nil {
		message = s.enhancer.Enhance(ctx, message)
	}

	title := req.Title
	if title == "" {
		title = defaultTitle
	}

	mentions := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		if m := discord.Mention(s.opts.Roles, role); m != "" {
			mentions = append(mentions, m)
		}
	}

	msg := discord.Message{
		Content:     strings.Join(mentions, " "),
		Username:    s.opts.BotName,
		Title:       title,
		Description: fmt.Sprintf("%s\n\n— *The %s Team*", message, s.opts.Team),
		Color:       customColor,
		ImageURL:    req.ImageURL,
	}

	if err := s.notifier.SendMessage(ctx, url, msg); err != nil {
		slog.Error("Custom announcement failed", "channel", req.WebhookChannel, "error", err)
		return model.AnnouncementResult{Success: false, Error: err.Error()}
	}

	slog.Info("Custom announcement sent", "channel", req.WebhookChannel, "title", title)
	if s.status != nil {
		s.status.IncCustomAnnouncements()
	}
	return model.AnnouncementResult{Success: true}
}
