// Command report renders text plots of the persisted summaries: confidence
// intervals of each statistic against lead time, ROC curves and, with
// -reliability, reliability and sharpness diagrams from the count arrays.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
	"github.com/couchcryptid/rainfall-verification/internal/report"
)

func main() {
	var ov config.Overrides
	ov.Register(flag.CommandLine)
	reliability := flag.Bool("reliability", false, "also render reliability and sharpness diagrams")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	store := arraystore.New(cfg.Path(cfg.CountsDir), cfg.Path(cfg.SummaryDir))
	r := report.New(store, cfg.Path(cfg.PlotDir), report.Settings{
		Accumulation: cfg.Accumulation,
		Systems:      cfg.Systems,
		Thresholds:   cfg.Thresholds,
		BaseTimes:    cfg.BaseTimes(),
		LeadTimes:    cfg.LeadTimes(),
		Level:        cfg.ConfidenceLevel,
		Reliability:  *reliability,
	}, logger)

	_, err = r.Run(ctx)
	stop()
	if err != nil {
		logger.Error("report failed", "error", err)
		os.Exit(1)
	}
}
