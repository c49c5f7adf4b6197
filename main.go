package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outside/internal/config"
	"outside/internal/daemon"
	"outside/internal/notify"
	"outside/internal/sink"
)

// initLogger installs the default logger. Logs go to stderr so stdout carries only notifications.
func initLogger(cfg *config.Config) {
	var logLevel slog.Level
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// render prints every notification until the sink is closed or ctx ends
func render(ctx context.Context, d *daemon.Daemon) {
	for {
		msg, err := d.Notifications().Pop(ctx)
		if err != nil {
			if !errors.Is(err, sink.ErrClosed) && !errors.Is(err, context.Canceled) {
				slog.Error("Notification sink failed", "error", err)
			}
			return
		}
		fmt.Println(notify.Render(time.Now(), msg))
		d.Forward(msg)
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("OUTSIDE_CONFIG_PATH", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		// The configured logger isn't available yet
		basicLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		basicLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	d, err := daemon.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize daemon", "error", err)
		os.Exit(1)
	}

	if err := d.Start(); err != nil {
		slog.Error("Failed to start daemon", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rendered := make(chan struct{})
	go func() {
		render(ctx, d)
		close(rendered)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received interrupt signal, shutting down...")

	if err := d.Stop(); err != nil {
		slog.Error("Error stopping daemon", "error", err)
	}

	// Stop closed the sink; let the renderer drain what was already queued
	select {
	case <-rendered:
	case <-time.After(time.Second):
		cancel()
	}

	slog.Info("Shutdown complete")
}
