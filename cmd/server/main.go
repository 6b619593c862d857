// Package main is the entry point for the uploader auth server.
//
// The main package is kept minimal. Its job is to:
// 1. Read configuration (environment variables, see internal/config)
// 2. Create the logger
// 3. Start the application and stop it on SIGINT/SIGTERM
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/uploader-auth/internal/config"
	"github.com/sakif/uploader-auth/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Config errors are reported before a logger exists, so they go
	// through a default text logger on stderr.
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := newLogger(os.Stdout, cfg)

	// === 3. CREATE AND START THE SERVER ===
	// NotifyContext cancels ctx on Ctrl+C or SIGTERM (sent by Docker,
	// Kubernetes, systemd). Start() blocks until then.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger picks the slog handler from LOG_FORMAT and LOG_LEVEL.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
