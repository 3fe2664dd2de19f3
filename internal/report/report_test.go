package report_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/bootstrap"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/report"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

var (
	ens  = domain.ForecastSystem{Name: "ENS", Members: 4, Kind: domain.Cumulative}
	day0 = time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
)

func seed(t *testing.T, store *arraystore.Store) {
	t.Helper()
	rec := domain.ExceedanceRecord{
		MemberCount: []int{4, 3, 2, 1, 0, 2, 3, 0},
		ObsFlag:     []int{1, 0, 1, 0, 0, 1, 1, 0},
	}
	days := domain.NewDaySamples()
	for i := range 3 {
		d := day0.AddDate(0, 0, i)
		require.NoError(t, days.Add(d, rec))
		require.NoError(t, store.SaveCounts(domain.CountKey{Accumulation: 12, System: "ENS", Threshold: 10, BaseTime: d, Step: 12}, rec))
	}

	r := bootstrap.Resampler{Repetitions: 20, Seed: 1, Workers: 1, Logger: slog.Default()}
	scores, err := r.Run(context.Background(), days, bootstrap.MembersEvaluator(4))
	require.NoError(t, err)
	tables, err := bootstrap.Tables(domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10}, []int{12, 18}, 20, [][]verify.Scores{scores, nil})
	require.NoError(t, err)
	for _, tbl := range tables {
		require.NoError(t, store.SaveSummary(tbl))
	}

	curves, err := verify.EvaluateCurves(days.Flatten(), 4)
	require.NoError(t, err)
	require.NoError(t, store.SaveCurves(domain.CurveKey{Accumulation: 12, System: "ENS", Threshold: 10, Step: 12}, curves))
}

func TestReporter_Run(t *testing.T) {
	dir := t.TempDir()
	store := arraystore.New(filepath.Join(dir, "counts"), filepath.Join(dir, "summary"))
	seed(t, store)
	plots := filepath.Join(dir, "plots")

	r := report.New(store, plots, report.Settings{
		Accumulation: 12,
		Systems:      []domain.ForecastSystem{ens},
		Thresholds:   []float64{10, 50},
		BaseTimes:    []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)},
		LeadTimes:    []int{12, 18},
		Level:        95,
		Reliability:  true,
	}, slog.Default())

	n, err := r.Run(context.Background())
	require.NoError(t, err)
	// Three interval plots, one ROC, one reliability and one sharpness diagram.
	assert.Equal(t, 6, n)

	for _, p := range []string{
		report.IntervalPath(plots, domain.StatBSrel, 12, 10),
		report.IntervalPath(plots, domain.StatAROC, 12, 10),
		report.IntervalPath(plots, domain.StatAROCz, 12, 10),
		report.ROCPath(plots, domain.CurveKey{Accumulation: 12, System: "ENS", Threshold: 10, Step: 12}),
		report.ReliabilityPath(plots, "Reliability", 12, 10, 12),
		report.ReliabilityPath(plots, "Sharpness", 12, 10, 12),
	} {
		_, err := os.Stat(p)
		require.NoError(t, err, p)
	}

	b, err := os.ReadFile(report.IntervalPath(plots, domain.StatAROC, 12, 10))
	require.NoError(t, err)
	assert.Contains(t, string(b), "AROCt, VRT>=10mm/12h, 95% confidence interval")
	assert.Contains(t, string(b), "ENS: no value at steps 018")
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("p", "12h", "AROC_12h_0.2.txt"), report.IntervalPath("p", domain.StatAROC, 12, 0.2))
	assert.Equal(t, filepath.Join("p", "12h", "BSrel_12h_10.txt"), report.IntervalPath("p", domain.StatBSrel, 12, 10))
	assert.Equal(t, filepath.Join("p", "12h", "ROC", "ENS", "ROC_12h_ENS_50_042.txt"),
		report.ROCPath("p", domain.CurveKey{Accumulation: 12, System: "ENS", Threshold: 50, Step: 42}))
	assert.Equal(t, filepath.Join("p", "12h", "10", "Sharpness_12h_10_246.txt"),
		report.ReliabilityPath("p", "Sharpness", 12, 10, 246))
}
