// Package service runs a batch stage as a process: it serves the operational
// HTTP endpoints while the stage runs and shuts them down afterwards.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/httpadapter"
)

// Options controls the process lifecycle.
type Options struct {
	HTTPAddr        string // empty disables the HTTP server
	ShutdownTimeout time.Duration
}

// Run executes run to completion or until ctx is cancelled. Cancellation is
// not an error: stages return nil once they stop.
func Run(ctx context.Context, opts Options, stage httpadapter.Stage, run func(context.Context) error, logger *slog.Logger) error {
	var srv *httpadapter.Server
	if opts.HTTPAddr != "" {
		srv = httpadapter.NewServer(opts.HTTPAddr, stage, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	start := time.Now()
	err := run(ctx)
	if ctx.Err() != nil {
		logger.Info("shutting down", "reason", ctx.Err())
	}
	logger.Info("stage returned", "duration", time.Since(start).Round(time.Millisecond), "progress", stage.Progress())

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Error("http server shutdown error", "error", serr)
		}
	}
	return err
}
