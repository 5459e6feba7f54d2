package announce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/discord"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

type recordingNotifier struct {
	err  error
	url  string
	msgs []discord.Message
}

func (r *recordingNotifier) SendMessage(_ context.Context, url string, msg discord.Message) error {
	r.url = url
	r.msgs = append(r.msgs, msg)
	return r.err
}

type upperEnhancer struct{}

func (upperEnhancer) Enhance(_ context.Context, message string) string {
	return "✨ " + message
}

func newService(n Notifier, status *activity.Status) *Service {
	return NewService(upperEnhancer{}, n, status, Options{
		Webhooks: map[string]string{
			"announcements": "https://discord.test/announce",
			"updates":       "https://discord.test/updates",
		},
		Roles: map[string]string{"labour": "<@&1431013492810321940>"},
	})
}

func TestSend_ResolvesChannelRolesAndEnhances(t *testing.T) {
	n := &recordingNotifier{}
	status := activity.NewStatus(nil)

	res := newService(n, status).Send(context.Background(), model.AnnouncementRequest{
		Title:          "Deploy",
		Message:        "New release is live",
		Roles:          []string{"Labour", "everyone", "<@&42>"},
		WebhookChannel: "UPDATES",
		UseAI:          true,
	})

	require.True(t, res.Success)
	assert.Equal(t, "https://discord.test/updates", n.url)
	require.Len(t, n.msgs, 1)
	msg := n.msgs[0]
	assert.Equal(t, "<@&1431013492810321940> @everyone <@&42>", msg.Content)
	assert.Equal(t, "Deploy", msg.Title)
	assert.Contains(t, msg.Description, "✨ New release is live")
	assert.Equal(t, customColor, msg.Color)
	assert.Equal(t, 1, status.Snapshot().TotalCustomAnnouncements)
}

func TestSend_FallsBackToDefaultChannel(t *testing.T) {
	n := &recordingNotifier{}
	res := newService(n, nil).Send(context.Background(), model.AnnouncementRequest{Message: "hi", WebhookChannel: "general"})

	require.True(t, res.Success)
	assert.Equal(t, "https://discord.test/announce", n.url)
	assert.Equal(t, defaultTitle, n.msgs[0].Title)
	assert.Empty(t, n.msgs[0].Content)
}

func TestSend_Declines(t *testing.T) {
	n := &recordingNotifier{}
	s := NewService(nil, n, nil, Options{Webhooks: map[string]string{}})

	res := s.Send(context.Background(), model.AnnouncementRequest{Message: "hi"})
	assert.False(t, res.Success)
	assert.Equal(t, "Webhook not configured", res.Error)

	res = newService(n, nil).Send(context.Background(), model.AnnouncementRequest{Message: "  "})
	assert.False(t, res.Success)
	assert.Empty(t, n.msgs)
}

func TestSend_DeliveryError(t *testing.T) {
	n := &recordingNotifier{err: errors.New("discord webhook error: status 404 Not Found")}
	status := activity.NewStatus(nil)

	res := newService(n, status).Send(context.Background(), model.AnnouncementRequest{Message: "hi"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "404")
	assert.Zero(t, status.Snapshot().TotalCustomAnnouncements)
}
