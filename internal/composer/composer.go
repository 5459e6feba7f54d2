package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Composer writes announcement text. It never fails: when generation is
// unavailable it falls back to a fixed template.
type Composer struct {
	gen     Generator
	team    string
	timeout time.Duration
}

// New returns a Composer. A nil gen means template-only.
func New(gen Generator, team string, timeout time.Duration) *Composer {
	if team == "" {
		team = "Digital Labour"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Composer{gen: gen, team: team, timeout: timeout}
}

// Template is the message used whenever generation is not possible.
func Template(holidayName, team string) string {
	return fmt.Sprintf("Happy %s! 🎉\n\nWishing the entire %s community a wonderful celebration filled with joy, prosperity, and memorable moments. May this special day bring you happiness and renewed energy for the days ahead.\n\nLet's celebrate together! 🎊", holidayName, team)
}

func (c *Composer) Compose(ctx context.Context, holidayName, description string) (text string) {
	fallback := Template(holidayName, c.team)
	if c.gen == nil {
		slog.Warn("No AI API key configured, using template message", "holiday", holidayName)
		return fallback
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("AI generation panicked", "holiday", holidayName, "panic", r)
			text = fallback
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	slog.Info("Generating AI message", "holiday", holidayName)
	out, err := c.gen.Generate(ctx, holidayPrompt(holidayName, description, c.team), 0.9)
	if err != nil {
		slog.Error("AI generation failed", "holiday", holidayName, "error", err)
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		slog.Warn("AI returned empty text, using template message", "holiday", holidayName)
		return fallback
	}
	slog.Info("AI message generated", "holiday", holidayName)
	return out
}

// Enhance polishes a custom announcement. The input is returned unchanged
// on any failure.
func (c *Composer) Enhance(ctx context.Context, message string) (text string) {
	if c.gen == nil {
		return message
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("AI enhancement panicked", "panic", r)
			text = message
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.gen.Generate(ctx, enhancePrompt(message), 0.7)
	if err != nil {
		slog.Error("AI enhancement failed", "error", err)
		return message
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return message
	}
	return out
}

func holidayPrompt(name, description, team string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a warm, festive announcement for %s celebration in India.\n\n", name)
	if description != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", description)
	}
	b.WriteString("Requirements:\n")
	b.WriteString("- 100-150 words\n")
	b.WriteString("- Uplifting and celebratory tone\n")
	b.WriteString("- Mention the significance briefly\n")
	fmt.Fprintf(&b, "- Include well-wishes for the %s community\n", team)
	b.WriteString("- Professional yet friendly\n")
	b.WriteString("- No greetings like \"Dear team\" or signatures\n\n")
	b.WriteString("Return ONLY the message text.")
	return b.String()
}

func enhancePrompt(message string) string {
	return fmt.Sprintf("Enhance this announcement for a Discord community:\n\n%s\n\nMake it professional, add 2-3 emojis, improve clarity. Keep it under 150 words.\n\nReturn ONLY the enhanced message.", message)
}
