package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	slogmulti "github.com/samber/slog-multi"

	"github.com/noahxzhu/holiday-notify/internal/activity"
	"github.com/noahxzhu/holiday-notify/internal/announce"
	"github.com/noahxzhu/holiday-notify/internal/checker"
	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/composer"
	"github.com/noahxzhu/holiday-notify/internal/config"
	"github.com/noahxzhu/holiday-notify/internal/discord"
	"github.com/noahxzhu/holiday-notify/internal/holiday"
	"github.com/noahxzhu/holiday-notify/internal/storage"
)

// app is every long-lived component, wired once per command.
type app struct {
	cfg      *config.Config
	clock    *clock.Clock
	log      *activity.Log
	status   *activity.Status
	store    *storage.Store
	fetcher  *holiday.Fetcher
	composer *composer.Composer
	notifier *discord.Client
	checker  *checker.Checker
	announce *announce.Service
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level slog.Level, log *activity.Log) {
	logger := slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		log.Handler(level),
	))
	slog.SetDefault(logger)
}

func newApp(ctx context.Context) (*app, error) {
	actLog := activity.NewLog(200, 20)
	setupLogger(parseLevel(logLevel), actLog)

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load env file", "path", envFile, "error", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	clk := clock.New(cfg.Schedule.Timezone)
	status := activity.NewStatus(actLog)

	// A broken state file costs at most a duplicate check, never startup.
	store := storage.NewStore(cfg.Storage.FilePath)
	if err := store.Load(); err != nil {
		slog.Error("Failed to load state, starting fresh", "path", cfg.Storage.FilePath, "error", err)
	}

	source := holiday.Chain{
		holiday.NewCalendarific(cfg.Holidays.CalendarificKey, cfg.Holidays.Country, cfg.Holidays.Timeout),
		holiday.NewAbstract(cfg.Holidays.AbstractKey, cfg.Holidays.Country, cfg.Holidays.Timeout),
	}
	fetcher := holiday.NewFetcher(source, store)

	var gen composer.Generator
	gemini, err := composer.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		slog.Warn("AI generation disabled", "error", err)
	} else if gemini != nil {
		gen = gemini
	} else {
		slog.Info("No AI key configured, using template messages")
	}
	comp := composer.New(gen, cfg.Branding.Team, cfg.AI.Timeout)

	notifier := discord.NewClient(discord.Options{
		Timeout:         cfg.Notifier.Timeout,
		MaxAttempts:     cfg.Notifier.MaxAttempts,
		InitialInterval: cfg.Notifier.InitialBackoff,
		MaxInterval:     cfg.Notifier.MaxBackoff,
		AvatarURL:       cfg.Branding.AvatarURL,
	})

	chk := checker.New(clk, fetcher, comp, notifier, store, status, checker.Options{
		WebhookURL: cfg.PrimaryWebhook(),
		Roles:      cfg.Roles,
		Team:       cfg.Branding.Team,
		BotName:    cfg.Branding.BotName,
	})

	ann := announce.NewService(comp, notifier, status, announce.Options{
		Webhooks: cfg.Webhooks,
		Roles:    cfg.Roles,
		Team:     cfg.Branding.Team,
	})

	return &app{
		cfg:      cfg,
		clock:    clk,
		log:      actLog,
		status:   status,
		store:    store,
		fetcher:  fetcher,
		composer: comp,
		notifier: notifier,
		checker:  chk,
		announce: ann,
	}, nil
}
