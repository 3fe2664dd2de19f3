package bootstrap

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

func day(d int) time.Time {
	return time.Date(2022, time.March, d, 0, 0, 0, 0, time.UTC)
}

func testDays(t *testing.T) *domain.DaySamples {
	t.Helper()
	ds := domain.NewDaySamples()
	recs := []domain.ExceedanceRecord{
		{MemberCount: []int{0, 1, 4, 3}, ObsFlag: []int{0, 0, 1, 1}},
		{MemberCount: []int{2, 2, 0}, ObsFlag: []int{1, 0, 0}},
		{MemberCount: []int{4, 3, 1, 0, 2}, ObsFlag: []int{1, 1, 0, 0, 1}},
		{MemberCount: []int{1, 0}, ObsFlag: []int{0, 0}},
		{MemberCount: []int{3, 4, 2}, ObsFlag: []int{1, 0, 1}},
	}
	for i, r := range recs {
		require.NoError(t, ds.Add(day(i+1), r))
	}
	return ds
}

func TestResampler_Run(t *testing.T) {
	days := testDays(t)
	r := Resampler{Repetitions: 20, Seed: 7, Workers: 3}

	got, err := r.Run(context.Background(), days, MembersEvaluator(4))
	require.NoError(t, err)
	require.Len(t, got, 21)

	orig, err := verify.Evaluate(days.Flatten(), 4)
	require.NoError(t, err)
	assert.Equal(t, orig.AROC, got[0].AROC)
	assert.Equal(t, orig.BSrel, got[0].BSrel)
}

func TestResampler_WorkerCountDoesNotChangeResults(t *testing.T) {
	days := testDays(t)
	eval := MembersEvaluator(4)

	serial, err := Resampler{Repetitions: 50, Seed: 42, Workers: 1}.Run(context.Background(), days, eval)
	require.NoError(t, err)
	parallel, err := Resampler{Repetitions: 50, Seed: 42, Workers: 8}.Run(context.Background(), days, eval)
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("results depend on worker count (-serial +parallel):\n%s", diff)
	}

	other, err := Resampler{Repetitions: 50, Seed: 43, Workers: 8}.Run(context.Background(), days, eval)
	require.NoError(t, err)
	assert.NotEqual(t, serial[1:], other[1:])
}

func TestResampler_Draws(t *testing.T) {
	r := Resampler{Repetitions: 100, Seed: 1}
	draws := r.Draws(5)
	require.Len(t, draws, 100)
	seen := make(map[int]bool)
	for _, d := range draws {
		require.Len(t, d, 5)
		for _, p := range d {
			require.GreaterOrEqual(t, p, 0)
			require.Less(t, p, 5)
			seen[p] = true
		}
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, draws, r.Draws(5))
}

func TestResampler_NoDays(t *testing.T) {
	called := false
	eval := func(domain.VerificationSample) (verify.Scores, error) {
		called = true
		return verify.Scores{}, nil
	}
	got, err := Resampler{Repetitions: 3, Seed: 1}.Run(context.Background(), domain.NewDaySamples(), eval)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.False(t, called)
	for _, s := range got {
		assert.True(t, math.IsNaN(s.BSrel))
		assert.True(t, math.IsNaN(s.AROC))
		assert.True(t, math.IsNaN(s.AROCz))
	}
}

func TestResampler_EmptyDrawIsNaN(t *testing.T) {
	// Both days have no stations, so every sample is empty.
	ds := domain.NewDaySamples()
	require.NoError(t, ds.Add(day(1), domain.ExceedanceRecord{}))
	require.NoError(t, ds.Add(day(2), domain.ExceedanceRecord{}))

	got, err := Resampler{Repetitions: 2, Seed: 1, Workers: 2}.Run(context.Background(), ds, MembersEvaluator(4))
	require.NoError(t, err)
	for _, s := range got {
		assert.True(t, math.IsNaN(s.AROC))
	}
}

func TestResampler_EvaluatorError(t *testing.T) {
	boom := errors.New("boom")
	eval := func(domain.VerificationSample) (verify.Scores, error) { return verify.Scores{}, boom }
	_, err := Resampler{Repetitions: 5, Seed: 1, Workers: 2}.Run(context.Background(), testDays(t), eval)
	require.ErrorIs(t, err, boom)
}

func TestResampler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resampler{Repetitions: 5, Seed: 1}.Run(ctx, testDays(t), MembersEvaluator(4))
	require.ErrorIs(t, err, context.Canceled)
}

func TestResampler_ZeroRepetitions(t *testing.T) {
	got, err := Resampler{Seed: 1}.Run(context.Background(), testDays(t), MembersEvaluator(4))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestTables(t *testing.T) {
	base := domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10}
	leads := []int{12, 18}
	scores := [][]verify.Scores{
		{{BSrel: 0.1, AROC: 0.8, AROCz: 0.82}, {BSrel: 0.2, AROC: 0.7, AROCz: 0.75}},
		nil,
	}

	tables, err := Tables(base, leads, 1, scores)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	aroc := tables[domain.StatAROC]
	assert.Equal(t, domain.StatAROC, aroc.Key.Statistic)
	require.NoError(t, aroc.Validate())
	assert.Equal(t, []float64{12, 0.8, 0.7}, aroc.Rows[0])
	assert.Equal(t, 18.0, aroc.Rows[1][0])
	assert.True(t, math.IsNaN(aroc.Rows[1][1]), "rows without data are kept")

	t.Run("zero repetitions gives two columns", func(t *testing.T) {
		tables, err := Tables(base, leads, 0, [][]verify.Scores{{{AROC: 0.9}}, {{AROC: 0.6}}})
		require.NoError(t, err)
		for _, tbl := range tables {
			for _, row := range tbl.Rows {
				assert.Len(t, row, 2)
			}
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := Tables(base, leads, 2, scores)
		require.Error(t, err)
		_, err = Tables(base, leads[:1], 1, scores)
		require.Error(t, err)
	})
}

func TestRows(t *testing.T) {
	key := domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 0.2, Statistic: domain.StatBSrel}
	tbl := domain.NewSummaryTable(key, []int{12, 18}, 4)
	copy(tbl.Rows[0][1:], []float64{0.05, 0.01, 0.02, 0.03, 0.04})

	at := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := Rows(tbl, RowMeta{RunID: "run-1", Level: 95, ValidDays: []int{30, 0}, ComputedAt: at})
	require.Len(t, rows, 2)

	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, 12, rows[0].LeadTime)
	assert.Equal(t, 0.05, rows[0].Original)
	assert.Equal(t, 30, rows[0].ValidDays)
	assert.Equal(t, 4, rows[0].Repetitions)
	assert.InDelta(t, 0.025, rows[0].Mean, 1e-12)
	assert.LessOrEqual(t, rows[0].Lower, rows[0].Upper)
	assert.Equal(t, at, rows[0].ComputedAt)

	assert.True(t, math.IsNaN(rows[1].Original))
	assert.True(t, math.IsNaN(rows[1].Lower))
}
