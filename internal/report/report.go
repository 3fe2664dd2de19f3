package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/bootstrap"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

// reliabilityBinWidth is the forecast-probability bin width of the
// reliability and sharpness diagrams.
const reliabilityBinWidth = 0.01

// Source reads the arrays the count and verify stages persisted.
type Source interface {
	LoadSummary(k domain.SummaryKey) (domain.SummaryTable, error)
	LoadCurves(k domain.CurveKey) (arraystore.CurveSet, error)
	LoadDays(acc int, sys domain.ForecastSystem, threshold float64, step int, bases []time.Time) (*domain.DaySamples, int, error)
}

// Settings selects what to plot.
type Settings struct {
	Accumulation int
	Systems      []domain.ForecastSystem
	Thresholds   []float64
	BaseTimes    []time.Time
	LeadTimes    []int
	Level        float64 // percent
	Reliability  bool
}

// Reporter writes text plots under a directory.
type Reporter struct {
	src      Source
	dir      string
	settings Settings
	logger   *slog.Logger
}

// New creates a reporter writing under dir.
func New(src Source, dir string, s Settings, logger *slog.Logger) *Reporter {
	return &Reporter{src: src, dir: dir, settings: s, logger: logger}
}

// IntervalPath is <dir>/<AA>h/<stat>_<AA>h_<thr>.txt.
func IntervalPath(dir string, stat domain.Statistic, acc int, thr float64) string {
	name := fmt.Sprintf("%s_%02dh_%s.txt", fileStat(stat), acc, domain.FormatThreshold(thr))
	return filepath.Join(dir, fmt.Sprintf("%02dh", acc), name)
}

// ROCPath is <dir>/<AA>h/ROC/<sys>/ROC_<AA>h_<sys>_<thr>_<SSS>.txt.
func ROCPath(dir string, k domain.CurveKey) string {
	name := fmt.Sprintf("ROC_%02dh_%s_%s_%03d.txt", k.Accumulation, k.System, domain.FormatThreshold(k.Threshold), k.Step)
	return filepath.Join(dir, fmt.Sprintf("%02dh", k.Accumulation), "ROC", k.System, name)
}

// ReliabilityPath is <dir>/<AA>h/<thr>/<kind>_<AA>h_<thr>_<SSS>.txt, kind
// being Reliability or Sharpness.
func ReliabilityPath(dir, kind string, acc int, thr float64, step int) string {
	t := domain.FormatThreshold(thr)
	name := fmt.Sprintf("%s_%02dh_%s_%03d.txt", kind, acc, t, step)
	return filepath.Join(dir, fmt.Sprintf("%02dh", acc), t, name)
}

// fileStat names the trapezoidal area "AROC" in file names.
func fileStat(s domain.Statistic) string {
	if s == domain.StatAROC {
		return "AROC"
	}
	return string(s)
}

// Run writes every plot and returns how many files it wrote. Missing
// inputs are skipped.
func (r *Reporter) Run(ctx context.Context) (int, error) {
	written := 0
	st := r.settings
	for _, thr := range st.Thresholds {
		for _, stat := range domain.Statistics {
			if ctx.Err() != nil {
				return written, nil
			}
			n, err := r.intervals(stat, thr)
			written += n
			if err != nil {
				return written, err
			}
		}
		for _, sys := range st.Systems {
			for _, step := range st.LeadTimes {
				n, err := r.roc(sys, thr, step)
				written += n
				if err != nil {
					return written, err
				}
			}
		}
		if !st.Reliability {
			continue
		}
		for _, step := range st.LeadTimes {
			if ctx.Err() != nil {
				return written, nil
			}
			n, err := r.reliability(thr, step)
			written += n
			if err != nil {
				return written, err
			}
		}
	}
	r.logger.Info("report written", "dir", r.dir, "files", written)
	return written, nil
}

func (r *Reporter) intervals(stat domain.Statistic, thr float64) (int, error) {
	st := r.settings
	var series []IntervalSeries
	for _, sys := range st.Systems {
		key := domain.SummaryKey{Accumulation: st.Accumulation, System: sys.Name, Threshold: thr, Statistic: stat}
		tbl, err := r.src.LoadSummary(key)
		if errors.Is(err, domain.ErrMissingInput) {
			r.logger.Debug("summary missing, skipping", "key", key.String())
			continue
		}
		if err != nil {
			return 0, err
		}
		series = append(series, IntervalSeries{
			System: sys.Name,
			Rows:   bootstrap.Rows(tbl, bootstrap.RowMeta{Level: st.Level}),
		})
	}
	if len(series) == 0 {
		return 0, nil
	}
	title := fmt.Sprintf("%s, VRT>=%smm/%dh, %v%% confidence interval",
		stat, domain.FormatThreshold(thr), st.Accumulation, st.Level)
	return 1, write(IntervalPath(r.dir, stat, st.Accumulation, thr), RenderIntervals(title, series))
}

func (r *Reporter) roc(sys domain.ForecastSystem, thr float64, step int) (int, error) {
	k := domain.CurveKey{Accumulation: r.settings.Accumulation, System: sys.Name, Threshold: thr, Step: step}
	cs, err := r.src.LoadCurves(k)
	if errors.Is(err, domain.ErrMissingInput) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	title := fmt.Sprintf("ROC %s, VRT>=%smm/%dh, StepF=%03d", sys.Name, domain.FormatThreshold(thr), k.Accumulation, step)
	text := RenderROC(title,
		verify.ROCCurve{FAR: cs.FAR, HR: cs.HR},
		verify.ROCCurve{FAR: cs.FARz, HR: cs.HRz},
		cs.AROC, cs.AROCz)
	return 1, write(ROCPath(r.dir, k), text)
}

func (r *Reporter) reliability(thr float64, step int) (int, error) {
	st := r.settings
	var series []ReliabilitySeries
	for _, sys := range st.Systems {
		days, _, err := r.src.LoadDays(st.Accumulation, sys, thr, step, st.BaseTimes)
		if err != nil {
			return 0, err
		}
		if days.Len() == 0 {
			continue
		}
		bins, err := verify.ReliabilityDiagram(days.Flatten(), sys.Members, reliabilityBinWidth)
		if err != nil {
			return 0, fmt.Errorf("reliability %s/%s step %d: %w", sys.Name, domain.FormatThreshold(thr), step, err)
		}
		series = append(series, ReliabilitySeries{System: sys.Name, Bins: bins})
	}
	if len(series) == 0 {
		return 0, nil
	}
	suffix := fmt.Sprintf("VRT>=%smm/%dh, StepF=%03d", domain.FormatThreshold(thr), st.Accumulation, step)
	if err := write(ReliabilityPath(r.dir, "Reliability", st.Accumulation, thr, step),
		RenderReliability("Reliability diagram, "+suffix, series)); err != nil {
		return 0, err
	}
	if err := write(ReliabilityPath(r.dir, "Sharpness", st.Accumulation, thr, step),
		RenderSharpness("Sharpness diagram, "+suffix, series)); err != nil {
		return 1, err
	}
	return 2, nil
}

func write(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o600)
}
