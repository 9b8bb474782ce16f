package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/dashboard"
	"github.com/veles-markets/console/internal/realtime"
	"github.com/veles-markets/console/internal/session"
	"github.com/veles-markets/console/internal/statestore"
)

const (
	defaultPollInterval   = 30 * time.Second
	defaultHealthInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "configs/console/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := statestore.Open(cfg.StateFile)
	if err != nil {
		log.Fatalf("Couldn't open state file: %v", err)
	}

	sess := session.New(store, logger)
	backend := api.New(cfg.Backend.APIURL, sess.Token)

	board := dashboard.New(dashboard.Config{
		WebsocketURL:      cfg.Backend.WSURL,
		PollInterval:      cfg.PollInterval.Or(defaultPollInterval),
		HealthInterval:    cfg.HealthInterval.Or(defaultHealthInterval),
		ReconnectInterval: cfg.ReconnectInterval.Or(realtime.DefaultReconnectInterval),
	}, backend, sess, store, logger)

	// A stored token is confirmed by Start; without one, fall back to
	// credentials from the environment.
	if sess.Token() == "" {
		email, password := os.Getenv("CONSOLE_EMAIL"), os.Getenv("CONSOLE_PASSWORD")
		if email != "" && password != "" {
			if err := board.Login(ctx, email, password); err != nil {
				log.Fatalf("Couldn't log in: %v", err)
			}
		}
	}

	if err := board.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Dashboard stopped: %v", err)
	}
	logger.Info("shut down")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
