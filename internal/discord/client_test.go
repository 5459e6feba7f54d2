package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(attempts int) *Client {
	return NewClient(Options{
		Timeout:         time.Second,
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		AvatarURL:       "https://example.com/avatar.png",
		FooterText:      "Holiday Bot",
	})
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ok := testClient(3).Send(context.Background(), srv.URL, Message{
		Content:     "@everyone",
		Username:    "Holiday Bot",
		Title:       "Holiday Announcement",
		Description: "**Holi**",
		Color:       0xFF6347,
		ImageURL:    "https://example.com/holi.jpg",
	})

	require.True(t, ok)
	assert.EqualValues(t, 3, calls.Load())

	assert.Equal(t, "@everyone", body["content"])
	assert.Equal(t, "Holiday Bot", body["username"])
	assert.Equal(t, "https://example.com/avatar.png", body["avatar_url"])

	embeds, _ := body["embeds"].([]any)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, "Holiday Announcement", embed["title"])
	assert.EqualValues(t, 0xFF6347, embed["color"])
	assert.Equal(t, "https://example.com/holi.jpg", embed["image"].(map[string]any)["url"])
	assert.Equal(t, "Holiday Bot", embed["footer"].(map[string]any)["text"])
}

func TestSend_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	assert.False(t, testClient(4).Send(context.Background(), srv.URL, Message{Title: "x"}))
	assert.EqualValues(t, 4, calls.Load())
}

func TestSend_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message": "Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := testClient(5).SendMessage(context.Background(), srv.URL, Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.EqualValues(t, 1, calls.Load())
}

func TestSend_MissingWebhook(t *testing.T) {
	assert.False(t, testClient(3).Send(context.Background(), "  ", Message{Title: "x"}))
}
