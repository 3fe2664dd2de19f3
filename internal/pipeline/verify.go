package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/bootstrap"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

// SummaryStore loads count arrays and persists verify outputs.
type SummaryStore interface {
	LoadDays(acc int, sys domain.ForecastSystem, threshold float64, step int, bases []time.Time) (*domain.DaySamples, int, error)
	SaveSummary(t domain.SummaryTable) error
	SaveCurves(k domain.CurveKey, c verify.Curves) error
}

// RowSink receives the reduced summary rows of one (system, threshold). The
// results catalog and the Kafka publisher both implement it.
type RowSink interface {
	Record(ctx context.Context, rows []domain.SummaryRow) error
}

// RowSinkFunc adapts a function to RowSink.
type RowSinkFunc func(ctx context.Context, rows []domain.SummaryRow) error

func (f RowSinkFunc) Record(ctx context.Context, rows []domain.SummaryRow) error { return f(ctx, rows) }

// VerifySettings fixes the axes and bootstrap parameters of the verify stage.
type VerifySettings struct {
	RunID        string
	Accumulation int
	Systems      []domain.ForecastSystem
	Thresholds   []float64
	BaseTimes    []time.Time
	LeadTimes    []int
	Repetitions  int
	Seed         uint64
	Workers      int
	Level        float64 // confidence level in percent
}

// VerifyStage computes BSrel, AROC and AROCz with bootstrap confidence
// intervals for every system, threshold and lead time.
type VerifyStage struct {
	store    SummaryStore
	sinks    []RowSink
	settings VerifySettings
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracker  tracker
}

// NewVerifyStage creates a verify stage. Summary rows are handed to every sink.
func NewVerifyStage(store SummaryStore, s VerifySettings, logger *slog.Logger, metrics *observability.Metrics, sinks ...RowSink) *VerifyStage {
	return &VerifyStage{
		store:    store,
		sinks:    sinks,
		settings: s,
		logger:   logger,
		metrics:  metrics,
		tracker:  tracker{stage: "verify"},
	}
}

// CheckReadiness returns nil once the stage has written a summary table.
func (s *VerifyStage) CheckReadiness(ctx context.Context) error { return s.tracker.checkReadiness(ctx) }

// Progress reports how many (system, threshold) pairs are done.
func (s *VerifyStage) Progress() Progress { return s.tracker.snapshot() }

// Run verifies every (system, threshold) pair in turn; bootstrap repetitions
// within a lead time run in parallel.
func (s *VerifyStage) Run(ctx context.Context) error {
	st := s.settings
	s.logger.Info("verify stage started",
		"run_id", st.RunID, "systems", len(st.Systems), "thresholds", len(st.Thresholds),
		"lead_times", len(st.LeadTimes), "repetitions", st.Repetitions)
	s.metrics.StageRunning.WithLabelValues("verify").Set(1)
	defer s.metrics.StageRunning.WithLabelValues("verify").Set(0)
	s.tracker.start(len(st.Systems) * len(st.Thresholds))

	for _, sys := range st.Systems {
		for _, thr := range st.Thresholds {
			if ctx.Err() != nil {
				s.logger.Info("verify stage stopping", "reason", ctx.Err())
				return nil
			}
			err := s.verifyPair(ctx, sys, thr)
			if errors.Is(err, context.Canceled) {
				s.logger.Info("verify stage stopping", "reason", err)
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
	s.logger.Info("verify stage finished", "pairs", s.tracker.done.Load(), "arrays_written", s.tracker.written.Load())
	return nil
}

func (s *VerifyStage) verifyPair(ctx context.Context, sys domain.ForecastSystem, thr float64) error {
	start := time.Now()
	st := s.settings
	log := s.logger.With("system", sys.Name, "threshold", domain.FormatThreshold(thr))

	resampler := bootstrap.Resampler{Repetitions: st.Repetitions, Seed: st.Seed, Workers: st.Workers, Logger: log}
	eval := bootstrap.MembersEvaluator(sys.Members)

	scores := make([][]verify.Scores, len(st.LeadTimes))
	validDays := make([]int, len(st.LeadTimes))
	for i, step := range st.LeadTimes {
		days, missing, err := s.store.LoadDays(st.Accumulation, sys, thr, step, st.BaseTimes)
		if err != nil {
			return fmt.Errorf("load counts %s/%s step %d: %w", sys.Name, domain.FormatThreshold(thr), step, err)
		}
		if missing > 0 {
			s.metrics.MissingInputs.WithLabelValues(sys.Name, "counts").Add(float64(missing))
		}
		validDays[i] = days.Len()
		if days.Len() == 0 {
			log.Warn("no count arrays for lead time, row left undefined", "step", step)
			continue
		}

		row, err := resampler.Run(ctx, days, eval)
		if err != nil {
			return fmt.Errorf("bootstrap %s/%s step %d: %w", sys.Name, domain.FormatThreshold(thr), step, err)
		}
		scores[i] = row
		s.metrics.BootstrapEvaluations.WithLabelValues(sys.Name).Add(float64(len(row)))
		s.noteDegenerate(log, sys, step, row[0])

		if err := s.saveCurves(sys, thr, step, days); err != nil {
			return err
		}
		log.Debug("lead time verified", "step", step, "days", days.Len(), "missing", missing)
	}

	base := domain.SummaryKey{Accumulation: st.Accumulation, System: sys.Name, Threshold: thr}
	tables, err := bootstrap.Tables(base, st.LeadTimes, st.Repetitions, scores)
	if err != nil {
		return err
	}

	meta := bootstrap.RowMeta{RunID: st.RunID, Level: st.Level, ValidDays: validDays, ComputedAt: domain.Now()}
	var rows []domain.SummaryRow
	for _, stat := range domain.Statistics {
		t := tables[stat]
		if err := s.store.SaveSummary(t); err != nil {
			return err
		}
		s.metrics.ArraysWritten.WithLabelValues("summary").Inc()
		s.tracker.wrote(1)
		rows = append(rows, bootstrap.Rows(t, meta)...)
	}

	for _, sink := range s.sinks {
		if err := sink.Record(ctx, rows); err != nil {
			return fmt.Errorf("record summaries %s/%s: %w", sys.Name, domain.FormatThreshold(thr), err)
		}
	}

	s.tracker.done.Add(1)
	s.metrics.StageDuration.WithLabelValues("verify").Observe(sinceSeconds(start))
	log.Info("summaries written", "rows", len(rows), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *VerifyStage) saveCurves(sys domain.ForecastSystem, thr float64, step int, days *domain.DaySamples) error {
	curves, err := verify.EvaluateCurves(days.Flatten(), sys.Members)
	if errors.Is(err, domain.ErrEmptySample) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("curves %s/%s step %d: %w", sys.Name, domain.FormatThreshold(thr), step, err)
	}
	k := domain.CurveKey{Accumulation: s.settings.Accumulation, System: sys.Name, Threshold: thr, Step: step}
	if err := s.store.SaveCurves(k, curves); err != nil {
		return err
	}
	s.metrics.ArraysWritten.WithLabelValues("curve").Inc()
	return nil
}

func (s *VerifyStage) noteDegenerate(log *slog.Logger, sys domain.ForecastSystem, step int, original verify.Scores) {
	for _, stat := range domain.Statistics {
		if math.IsNaN(original.Get(stat)) {
			s.metrics.DegenerateStatistics.WithLabelValues(sys.Name, string(stat)).Inc()
			log.Debug("statistic undefined for original sample", "step", step, "statistic", stat)
		}
	}
}
