package discord

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// Message is one embed-style post to a webhook.
type Message struct {
	Content     string // plain text above the embed, used for mentions
	Username    string
	Title       string
	Description string
	Color       int
	ImageURL    string
}

type Options struct {
	Timeout         time.Duration
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AvatarURL       string
	FooterText      string
}

type Client struct {
	http *resty.Client
	opts Options
	now  func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return &Client{
		http: resty.New().SetTimeout(opts.Timeout),
		opts: opts,
		now:  time.Now,
	}
}

// Send posts msg and reports whether it was delivered. Failures are logged,
// never returned.
func (c *Client) Send(ctx context.Context, webhookURL string, msg Message) bool {
	if strings.TrimSpace(webhookURL) == "" {
		slog.Error("Webhook not configured", "title", msg.Title)
		return false
	}
	if err := c.SendMessage(ctx, webhookURL, msg); err != nil {
		slog.Error("Webhook delivery failed", "title", msg.Title, "error", err)
		return false
	}
	slog.Info("Webhook message delivered", "title", msg.Title)
	return true
}

// SendMessage posts msg, retrying network errors, 429 and 5xx responses
// with exponential backoff up to MaxAttempts tries.
func (c *Client) SendMessage(ctx context.Context, webhookURL string, msg Message) error {
	params := c.params(msg)

	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(params).
			Post(webhookURL)
		if err != nil {
			slog.Warn("Webhook request failed", "attempt", attempt, "max", c.opts.MaxAttempts, "error", err)
			return err
		}
		if resp.IsSuccess() {
			return nil
		}

		apiErr := fmt.Errorf("discord webhook error: status %s, body %s", resp.Status(), strings.TrimSpace(resp.String()))
		if code := resp.StatusCode(); code != http.StatusTooManyRequests && code < 500 {
			return backoff.Permanent(apiErr)
		}
		slog.Warn("Webhook request rejected", "attempt", attempt, "max", c.opts.MaxAttempts, "error", apiErr)
		return apiErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithMaxRetries(b, uint64(c.opts.MaxAttempts-1))
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func (c *Client) params(msg Message) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   c.now().UTC().Format(time.RFC3339),
	}
	if msg.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.ImageURL}
	}
	if c.opts.FooterText != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    c.opts.FooterText,
			IconURL: c.opts.AvatarURL,
		}
	}

	return &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: c.opts.AvatarURL,
		Embeds:    []*discordgo.MessageEmbed{embed},
	}
}
