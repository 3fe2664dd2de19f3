// Command verify runs the statistics and bootstrap stage over the count
// arrays written by cmd/count. Summary rows are optionally recorded in a
// SQLite catalog (CATALOG_PATH) and published to Kafka (KAFKA_ENABLED).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/adapter/catalog"
	kafkaadapter "github.com/couchcryptid/rainfall-verification/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
	"github.com/couchcryptid/rainfall-verification/internal/pipeline"
	"github.com/couchcryptid/rainfall-verification/internal/service"
)

func main() {
	var ov config.Overrides
	ov.Register(flag.CommandLine)
	runID := flag.String("run-id", "", "identifier stamped on summary rows (default: random UUID)")
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = ov.Apply(cfg)
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, *runID); err != nil {
		slog.Error("verify stage failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, runID string) error {
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := observability.NewLogger(cfg).With("run_id", runID)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []pipeline.RowSink
	if cfg.CatalogPath != "" {
		cat, err := catalog.Open(ctx, cfg.Path(cfg.CatalogPath))
		if err != nil {
			return err
		}
		defer func() {
			if err := cat.Close(); err != nil {
				logger.Error("catalog close error", "error", err)
			}
		}()
		sinks = append(sinks, cat)
		logger.Info("results catalog enabled", "path", cat.Path())
	}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, pipeline.RowSinkFunc(func(ctx context.Context, rows []domain.SummaryRow) error {
			if err := writer.Publish(ctx, rows); err != nil {
				return err
			}
			metrics.SummariesPublished.Add(float64(len(rows)))
			return nil
		}))
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSummaryTopic)
	}

	store := arraystore.New(cfg.Path(cfg.CountsDir), cfg.Path(cfg.SummaryDir))
	stage := pipeline.NewVerifyStage(store, pipeline.VerifySettings{
		RunID:        runID,
		Accumulation: cfg.Accumulation,
		Systems:      cfg.Systems,
		Thresholds:   cfg.Thresholds,
		BaseTimes:    cfg.BaseTimes(),
		LeadTimes:    cfg.LeadTimes(),
		Repetitions:  cfg.Repetitions,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		Level:        cfg.ConfidenceLevel,
	}, logger, metrics, sinks...)

	if err := service.Run(ctx, service.Options{HTTPAddr: cfg.HTTPAddr, ShutdownTimeout: cfg.ShutdownTimeout},
		stage, stage.Run, logger); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
