package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSummaryTable_Shape(t *testing.T) {
	key := SummaryKey{Accumulation: 12, System: "ENS", Threshold: 10, Statistic: StatBSrel}
	tbl := NewSummaryTable(key, []int{12, 18}, 3)

	require.NoError(t, tbl.Validate())
	assert.Equal(t, 3, tbl.Repetitions())
	require.Len(t, tbl.Rows, 2)
	assert.Len(t, tbl.Rows[0], 5)
	assert.Equal(t, 18.0, tbl.Rows[1][0])
	assert.True(t, math.IsNaN(tbl.Original(0)))
	assert.Len(t, tbl.Bootstrap(1), 3)
}

func TestNewSummaryTable_NoRepetitions(t *testing.T) {
	tbl := NewSummaryTable(SummaryKey{}, []int{12}, 0)
	assert.Len(t, tbl.Rows[0], 2)
	assert.Empty(t, tbl.Bootstrap(0))
}

func TestRecordMatrixRoundTrip(t *testing.T) {
	rec := ExceedanceRecord{MemberCount: []int{0, 5, 51}, ObsFlag: []int{0, 1, 1}}
	m := RecordMatrix(rec)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, []float64{0, 5, 51}, m.Row(0))

	back, err := MatrixRecord(m)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	_, err = MatrixRecord(NewMatrix(3, 1))
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestMatrixRecord_RejectsNonCountCells(t *testing.T) {
	for name, cell := range map[string]float64{
		"nan":        math.NaN(),
		"infinite":   math.Inf(1),
		"negative":   -1,
		"fractional": 0.5,
	} {
		t.Run(name, func(t *testing.T) {
			m := RecordMatrix(ExceedanceRecord{MemberCount: []int{2, 1}, ObsFlag: []int{1, 0}})
			m.Set(1, 1, cell)
			_, err := MatrixRecord(m)
			require.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestTableMatrixRoundTrip(t *testing.T) {
	key := SummaryKey{Accumulation: 12, System: "ENS", Threshold: 0.2, Statistic: StatAROC}
	tbl := NewSummaryTable(key, []int{12, 18, 24}, 2)
	tbl.Rows[1][1] = 0.81

	back, err := MatrixTable(key, TableMatrix(tbl))
	require.NoError(t, err)
	assert.Equal(t, tbl.LeadTimes, back.LeadTimes)
	assert.Equal(t, 0.81, back.Original(1))
	assert.True(t, math.IsNaN(back.Original(0)))
}

func TestCountKey(t *testing.T) {
	k := CountKey{Accumulation: 12, System: "ENS", Threshold: 0.2, BaseTime: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Step: 36}
	assert.Equal(t, "12h/ENS/0.2/2022010100/036", k.String())
	assert.Equal(t, time.Date(2022, 1, 2, 12, 0, 0, 0, time.UTC), k.ValidTime())
}

func TestNow_UsesClock(t *testing.T) {
	fixed := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, fixed, Now())
}
