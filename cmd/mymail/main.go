// Package main is the entrypoint for the headless MyMail client. It
// logs in, keeps the local roster and message history in sync, rings
// the terminal bell on incoming messages, and logs out on SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymail/mymail/internal/client"
	"github.com/mymail/mymail/internal/config"
	"github.com/mymail/mymail/internal/notify"
	"github.com/mymail/mymail/internal/presence"
	"github.com/mymail/mymail/internal/session"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	api := client.New(cfg.APIBaseURL, client.WithTimeout(cfg.RequestTimeout))

	dispatcher := notify.New(
		&notify.TerminalBell{W: os.Stdout},
		&notify.ConsoleBanner{W: os.Stdout},
		logger,
		nil,
	)

	ctrl := session.New(api, dispatcher, logger,
		session.WithPollInterval(cfg.PollInterval),
	)

	ctx := context.Background()

	self, err := ctrl.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		if errors.Is(err, client.ErrInvalidCredentials) || client.IsValidation(err) {
			logger.Error("login rejected", "email", cfg.Email)
		} else {
			logger.Error("login failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("session started",
		"user", self.Label(),
		"role", self.Role,
		"poll_interval", cfg.PollInterval,
	)

	printRoster(ctrl)

	// Block until asked to stop; the sync engine runs in the background.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ctrl.Logout(shutdownCtx); err != nil {
		logger.Error("logout failed", "error", err)
		os.Exit(1)
	}
	logger.Info("session ended")
}

// printRoster writes everyone else on the roster with their presence
// line, the way the contact list renders them.
func printRoster(ctrl *session.Controller) {
	self := ctrl.Self()
	if self == nil {
		return
	}
	now := time.Now()
	for _, u := range ctrl.Roster().Others(self.ID) {
		fmt.Printf("%-30s %s\n", u.Label(), presence.Status(&u, now))
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.ClientConfig) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
