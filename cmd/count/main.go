// Command count runs the exceedance-count stage: for every configured system,
// base date, lead time and threshold it writes one count array.
//
// Usage:
//
//	go run ./cmd/count -start 20211201 -end 20211231 -systems ENS
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/adapter/fieldfile"
	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
	"github.com/couchcryptid/rainfall-verification/internal/pipeline"
	"github.com/couchcryptid/rainfall-verification/internal/service"
)

func main() {
	var ov config.Overrides
	ov.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = ov.Apply(cfg)
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := fieldfile.NewCachedReader(
		fieldfile.NewReader(cfg.Path(cfg.FCDir), cfg.Path(cfg.OBSDir)),
		cfg.FieldCacheSize, metrics)
	store := arraystore.New(cfg.Path(cfg.CountsDir), cfg.Path(cfg.SummaryDir))

	stage := pipeline.NewCountStage(reader, store, pipeline.CountSettings{
		Accumulation: cfg.Accumulation,
		Systems:      cfg.Systems,
		Thresholds:   cfg.Thresholds,
		BaseTimes:    cfg.BaseTimes(),
		LeadTimes:    cfg.LeadTimes(),
		Workers:      cfg.Workers,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = service.Run(ctx, service.Options{HTTPAddr: cfg.HTTPAddr, ShutdownTimeout: cfg.ShutdownTimeout},
		stage, stage.Run, logger)
	stop()
	if err != nil {
		logger.Error("count stage failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
