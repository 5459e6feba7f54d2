package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noahxzhu/holiday-notify/internal/scheduler"
	"github.com/noahxzhu/holiday-notify/internal/supervisor"
	"github.com/noahxzhu/holiday-notify/internal/web"
	"github.com/noahxzhu/holiday-notify/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return err
	}
	slog.Info("Config validated",
		"timezone", a.clock.Location().String(),
		"webhooks", a.cfg.ConfiguredWebhooks(),
		"test_mode", a.cfg.TestMode)

	sched, err := scheduler.New(a.checker, a.clock, a.status, scheduler.Options{
		Cron:          a.cfg.Schedule.Cron,
		GuardTime:     a.cfg.Schedule.GuardTime,
		GuardInterval: a.cfg.Schedule.GuardInterval,
		TestMode:      a.cfg.TestMode,
	})
	if err != nil {
		return err
	}

	w := worker.NewWorker(a.announce)

	srv := web.NewServer(web.Deps{
		Checker:   a.checker,
		Holidays:  a.fetcher,
		Announcer: a.announce,
		Scheduler: w,
		Clock:     a.clock,
		Status:    a.status,
		Log:       a.log,
	}, web.Options{
		Password:           a.cfg.Server.Password,
		WebhooksConfigured: a.cfg.ConfiguredWebhooks(),
	})
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	policy := supervisor.New()
	serveErr := make(chan error, 2)

	policy.Go("worker", func() { w.Start(ctx) })
	policy.Go("scheduler", func() {
		if err := sched.Start(ctx); err != nil {
			serveErr <- fmt.Errorf("scheduler: %w", err)
		}
	})
	policy.Go("http", func() {
		slog.Info("Starting server", "port", a.cfg.Server.Port, "url", "http://localhost"+a.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	})

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down...")
	case runErr = <-serveErr:
		slog.Error("Component failed, shutting down", "error", runErr)
	}
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return errors.Join(runErr, err)
	}
	if err := a.store.Save(); err != nil {
		slog.Error("Failed to save state on shutdown", "error", err)
	}
	slog.Info("Server exited")
	return runErr
}
