package mockdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/fieldfile"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

var (
	ens   = domain.ForecastSystem{Name: "ENS", Members: 5, Kind: domain.Cumulative}
	point = domain.ForecastSystem{Name: "ecPoint", Members: 9, Kind: domain.Accumulated}
	day0  = time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
)

func testOptions() Options {
	o := DefaultOptions()
	o.NLat, o.NLon = 3, 4
	o.Systems = []domain.ForecastSystem{ens, point}
	o.BaseTimes = []time.Time{day0, day0.AddDate(0, 0, 1)}
	o.LeadTimes = []int{12, 18, 24}
	o.Accumulation = 12
	return o
}

func TestNew_Validation(t *testing.T) {
	o := testOptions()
	o.LeadTimes = []int{6}
	_, err := New(o)
	require.Error(t, err)

	o = testOptions()
	o.Systems = nil
	_, err = New(o)
	require.Error(t, err)
}

func TestGenerator_Write(t *testing.T) {
	g, err := New(testOptions())
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, g.slot)

	fc, obs := t.TempDir(), t.TempDir()
	w, err := g.Write(fc, obs)
	require.NoError(t, err)

	// ENS: steps {0,6,12,18,24} per base; ecPoint: one file per lead time.
	assert.Equal(t, 2*5+2*3, w.Forecasts)
	// Valid times: 12,18,24,36,42,48 hours after the first base.
	assert.Equal(t, 6, w.Observations)

	_, err = os.Stat(fieldfile.AccumulatedPath(fc, "ecPoint", day0, 18, 12))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(fc, "ENS", "2021120100", "tp_20211201_00_000.msgpack"))
	require.NoError(t, err)
}

func TestGenerator_ReadBack(t *testing.T) {
	g, err := New(testOptions())
	require.NoError(t, err)
	fc, obs := t.TempDir(), t.TempDir()
	_, err = g.Write(fc, obs)
	require.NoError(t, err)

	r := fieldfile.NewReader(fc, obs)
	ctx := context.Background()
	for _, sys := range []domain.ForecastSystem{ens, point} {
		f, err := r.ReadForecast(ctx, sys, day0, 24, 12)
		require.NoError(t, err, sys.Name)
		assert.Equal(t, sys.Members, f.Members())

		o, err := r.ReadObservations(ctx, day0.Add(24*time.Hour), 12)
		require.NoError(t, err)
		require.Len(t, o.Values(), 12)

		vals, err := f.NearestValues(0, o.Locations())
		require.NoError(t, err)
		for _, v := range vals {
			assert.GreaterOrEqual(t, v, -1e-3)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	read := func() []float64 {
		g, err := New(testOptions())
		require.NoError(t, err)
		fc, obs := t.TempDir(), t.TempDir()
		_, err = g.Write(fc, obs)
		require.NoError(t, err)
		f, err := fieldfile.NewReader(fc, obs).ReadForecast(context.Background(), point, day0, 18, 12)
		require.NoError(t, err)
		v, err := f.NearestValues(3, []domain.Location{{Lat: 43, Lon: -2}})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, read(), read())
}

func TestGenerator_ObservationsMatchTruth(t *testing.T) {
	g, err := New(testOptions())
	require.NoError(t, err)
	v := day0.Add(24 * time.Hour)
	total := g.truthWindow(v.Add(-12*time.Hour), v)
	a := g.truthSlot(v.Add(-6 * time.Hour))
	b := g.truthSlot(v)
	for p := range total {
		assert.InDelta(t, a[p]+b[p], total[p], 1e-12)
	}
}
