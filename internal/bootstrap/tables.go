package bootstrap

import (
	"fmt"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

// Tables assembles one summary table per statistic. scores[i] holds the
// Run output for leadTimes[i]; a nil entry leaves that row NaN.
func Tables(base domain.SummaryKey, leadTimes []int, repetitions int, scores [][]verify.Scores) (map[domain.Statistic]domain.SummaryTable, error) {
	if len(scores) != len(leadTimes) {
		return nil, fmt.Errorf("%d score rows for %d lead times", len(scores), len(leadTimes))
	}
	out := make(map[domain.Statistic]domain.SummaryTable, len(domain.Statistics))
	for _, stat := range domain.Statistics {
		key := base
		key.Statistic = stat
		t := domain.NewSummaryTable(key, leadTimes, repetitions)
		for i, row := range scores {
			if row == nil {
				continue
			}
			if len(row) != repetitions+1 {
				return nil, fmt.Errorf("lead time %d: %d scores, want %d", leadTimes[i], len(row), repetitions+1)
			}
			for j, s := range row {
				t.Rows[i][j+1] = s.Get(stat)
			}
		}
		out[stat] = t
	}
	return out, nil
}

// RowMeta carries the run-level fields stamped on every summary row.
type RowMeta struct {
	RunID      string
	Level      float64
	ValidDays  []int // per lead time
	ComputedAt time.Time
}

// Rows reduces a table to one SummaryRow per lead time with its confidence
// interval at meta.Level.
func Rows(t domain.SummaryTable, meta RowMeta) []domain.SummaryRow {
	rows := make([]domain.SummaryRow, 0, len(t.Rows))
	for i, lt := range t.LeadTimes {
		ci := verify.ConfidenceInterval(t.Bootstrap(i), meta.Level)
		row := domain.SummaryRow{
			RunID:        meta.RunID,
			Accumulation: t.Key.Accumulation,
			System:       t.Key.System,
			Threshold:    t.Key.Threshold,
			Statistic:    t.Key.Statistic,
			LeadTime:     lt,
			Original:     t.Original(i),
			Lower:        ci.Lower,
			Upper:        ci.Upper,
			Mean:         ci.Mean,
			StdDev:       ci.StdDev,
			Level:        meta.Level,
			Repetitions:  t.Repetitions(),
			ComputedAt:   meta.ComputedAt,
		}
		if i < len(meta.ValidDays) {
			row.ValidDays = meta.ValidDays[i]
		}
		rows = append(rows, row)
	}
	return rows
}
