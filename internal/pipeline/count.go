// Package pipeline orchestrates the count and verify stages over the
// configured systems, thresholds, base dates and lead times.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/exceedance"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
)

// CountWriter persists exceedance records.
type CountWriter interface {
	SaveCounts(k domain.CountKey, rec domain.ExceedanceRecord) error
}

// CountSettings fixes the axes the count stage iterates over.
type CountSettings struct {
	Accumulation int
	Systems      []domain.ForecastSystem
	Thresholds   []float64
	BaseTimes    []time.Time
	LeadTimes    []int
	Workers      int
}

// CountStage computes and persists one exceedance record per system, base
// time, lead time and threshold. Each (system, base time) unit writes its own
// files, so units run concurrently.
type CountStage struct {
	reader   exceedance.FieldReader
	writer   CountWriter
	settings CountSettings
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracker  tracker
}

// NewCountStage creates a count stage.
func NewCountStage(r exceedance.FieldReader, w CountWriter, s CountSettings, logger *slog.Logger, metrics *observability.Metrics) *CountStage {
	return &CountStage{
		reader:   r,
		writer:   w,
		settings: s,
		logger:   logger,
		metrics:  metrics,
		tracker:  tracker{stage: "count"},
	}
}

// CheckReadiness returns nil once the stage has written a count array.
func (s *CountStage) CheckReadiness(ctx context.Context) error { return s.tracker.checkReadiness(ctx) }

// Progress reports how many (system, base time) units are done.
func (s *CountStage) Progress() Progress { return s.tracker.snapshot() }

// Run processes every unit and returns the first persistence error. Missing
// or unreadable inputs are logged and skipped. Cancelling ctx stops the stage
// between lead times.
func (s *CountStage) Run(ctx context.Context) error {
	st := s.settings
	s.logger.Info("count stage started",
		"systems", len(st.Systems), "base_times", len(st.BaseTimes),
		"lead_times", len(st.LeadTimes), "thresholds", len(st.Thresholds))
	s.metrics.StageRunning.WithLabelValues("count").Set(1)
	defer s.metrics.StageRunning.WithLabelValues("count").Set(0)
	s.tracker.start(len(st.Systems) * len(st.BaseTimes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(st.Workers, 1))
loop:
	for _, sys := range st.Systems {
		for _, base := range st.BaseTimes {
			if gctx.Err() != nil {
				break loop
			}
			g.Go(func() error {
				return s.countDate(gctx, sys, base)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		s.logger.Info("count stage stopping", "reason", ctx.Err())
		return nil
	}
	p := s.tracker.snapshot()
	s.logger.Info("count stage finished", "units", p.Done, "arrays_written", p.Written, "skipped", p.Skipped)
	return nil
}

// countDate handles every lead time of one base time.
func (s *CountStage) countDate(ctx context.Context, sys domain.ForecastSystem, base time.Time) error {
	start := time.Now()
	defer func() {
		s.tracker.done.Add(1)
		s.metrics.StageDuration.WithLabelValues("count").Observe(sinceSeconds(start))
	}()

	acc := s.settings.Accumulation
	for _, step := range s.settings.LeadTimes {
		if ctx.Err() != nil {
			return nil
		}
		log := s.logger.With("system", sys.Name, "date", base.Format("2006010215"), "step", step)

		fc, err := s.reader.ReadForecast(ctx, sys, base, step, acc)
		if err != nil {
			s.skip(log, sys, "forecast", err)
			continue
		}
		if fc.Members() != sys.Members {
			log.Warn("forecast member count differs from configuration, skipping",
				"members", fc.Members(), "configured", sys.Members)
			s.tracker.skipped.Add(1)
			continue
		}

		valid := base.Add(time.Duration(step) * time.Hour)
		obs, err := s.reader.ReadObservations(ctx, valid, acc)
		if err != nil {
			s.skip(log, sys, "observation", err)
			continue
		}

		records, err := exceedance.CountAll(fc, obs, s.settings.Thresholds)
		if err != nil {
			log.Warn("count failed, skipping", "error", err)
			s.tracker.skipped.Add(1)
			continue
		}

		for _, thr := range s.settings.Thresholds {
			k := domain.CountKey{Accumulation: acc, System: sys.Name, Threshold: thr, BaseTime: base, Step: step}
			if err := s.writer.SaveCounts(k, records[thr]); err != nil {
				return fmt.Errorf("count %s: %w", k, err)
			}
			s.metrics.RecordsCounted.WithLabelValues(sys.Name).Inc()
			s.metrics.ArraysWritten.WithLabelValues("counts").Inc()
			s.tracker.wrote(1)
		}
		log.Debug("counts written", "stations", len(obs.Values()))
	}
	return nil
}

func (s *CountStage) skip(log *slog.Logger, sys domain.ForecastSystem, kind string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.tracker.skipped.Add(1)
	if errors.Is(err, domain.ErrMissingInput) {
		s.metrics.MissingInputs.WithLabelValues(sys.Name, kind).Inc()
		log.Warn("input missing, skipping", "kind", kind, "error", err)
		return
	}
	log.Warn("read failed, skipping", "kind", kind, "error", err)
}
