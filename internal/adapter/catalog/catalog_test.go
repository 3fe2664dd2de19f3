package catalog

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func row(run string, lead int, original float64, at time.Time) domain.SummaryRow {
	return domain.SummaryRow{
		RunID: run, Accumulation: 12, System: "ENS", Threshold: 10, Statistic: domain.StatAROC,
		LeadTime: lead, ValidDays: 30, Original: original, Lower: original - 0.05, Upper: original + 0.05,
		Mean: original, StdDev: 0.02, Level: 95, Repetitions: 100, ComputedAt: at,
	}
}

func TestCatalog_RecordAndLatest(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	t0 := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Record(ctx, []domain.SummaryRow{row("old", 12, 0.7, t0), row("old", 18, 0.68, t0)}))
	require.NoError(t, c.Record(ctx, []domain.SummaryRow{row("new", 18, 0.81, t0.Add(time.Hour)), row("new", 12, 0.8, t0.Add(time.Hour))}))

	key := domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10, Statistic: domain.StatAROC}
	got, err := c.Latest(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].RunID)
	assert.Equal(t, 12, got[0].LeadTime)
	assert.InDelta(t, 0.8, got[0].Original, 1e-12)
	assert.Equal(t, 18, got[1].LeadTime)
	assert.Equal(t, t0.Add(time.Hour), got[0].ComputedAt)
	assert.Equal(t, domain.StatAROC, got[0].Statistic)

	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, 2, runs[0].Rows)

	key.Statistic = domain.StatAROCz
	none, err := c.Latest(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalog_NaNStoredAsNull(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	r := row("run", 240, math.NaN(), time.Now())
	r.StdDev = math.NaN()
	require.NoError(t, c.Record(ctx, []domain.SummaryRow{r}))

	got, err := c.Latest(ctx, domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10, Statistic: domain.StatAROC})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].Original))
	assert.True(t, math.IsNaN(got[0].StdDev))
}

func TestCatalog_RecordReplacesSameRun(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	at := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Record(ctx, []domain.SummaryRow{row("run", 12, 0.5, at)}))
	require.NoError(t, c.Record(ctx, []domain.SummaryRow{row("run", 12, 0.6, at)}))

	got, err := c.Latest(ctx, domain.SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10, Statistic: domain.StatAROC})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.6, got[0].Original, 1e-12)
}
