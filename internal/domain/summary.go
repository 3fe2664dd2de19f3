package domain

import (
	"fmt"
	"math"
	"time"
)

// SummaryTable holds one statistic for every lead time: column 0 is the lead
// time, column 1 the original value, and columns 2.. the bootstrap values.
type SummaryTable struct {
	Key       SummaryKey
	LeadTimes []int
	Rows      [][]float64
}

// NewSummaryTable allocates a NaN-filled table with repetitions bootstrap columns.
func NewSummaryTable(key SummaryKey, leadTimes []int, repetitions int) SummaryTable {
	rows := make([][]float64, len(leadTimes))
	for i, lt := range leadTimes {
		row := make([]float64, repetitions+2)
		row[0] = float64(lt)
		for j := 1; j < len(row); j++ {
			row[j] = math.NaN()
		}
		rows[i] = row
	}
	return SummaryTable{Key: key, LeadTimes: leadTimes, Rows: rows}
}

// Repetitions returns the number of bootstrap columns.
func (t SummaryTable) Repetitions() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0]) - 2
}

// Original returns column 1 of row i.
func (t SummaryTable) Original(i int) float64 { return t.Rows[i][1] }

// Bootstrap returns the bootstrap columns of row i.
func (t SummaryTable) Bootstrap(i int) []float64 { return t.Rows[i][2:] }

// Validate checks the table shape.
func (t SummaryTable) Validate() error {
	if len(t.Rows) != len(t.LeadTimes) {
		return fmt.Errorf("summary %s: %d rows for %d lead times", t.Key, len(t.Rows), len(t.LeadTimes))
	}
	for i, row := range t.Rows {
		if len(row) < 2 {
			return fmt.Errorf("summary %s: row %d has %d columns", t.Key, i, len(row))
		}
		if len(row) != len(t.Rows[0]) {
			return fmt.Errorf("summary %s: ragged row %d", t.Key, i)
		}
		if int(row[0]) != t.LeadTimes[i] {
			return fmt.Errorf("summary %s: row %d lead time %v, want %d", t.Key, i, row[0], t.LeadTimes[i])
		}
	}
	return nil
}

// SummaryRow is one lead-time row reduced to its point value and interval,
// the form recorded in the catalog and published downstream.
type SummaryRow struct {
	RunID        string    `json:"run_id"`
	Accumulation int       `json:"accumulation"`
	System       string    `json:"system"`
	Threshold    float64   `json:"threshold"`
	Statistic    Statistic `json:"statistic"`
	LeadTime     int       `json:"lead_time"`
	ValidDays    int       `json:"valid_days"`
	Original     float64   `json:"original"`
	Lower        float64   `json:"ci_lower"`
	Upper        float64   `json:"ci_upper"`
	Mean         float64   `json:"bootstrap_mean"`
	StdDev       float64   `json:"bootstrap_stddev"`
	Level        float64   `json:"confidence_level"`
	Repetitions  int       `json:"repetitions"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Matrix is a dense row-major array used for flat dumps.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns element (i, j).
func (m Matrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// Set assigns element (i, j).
func (m Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// Row returns a view of row i.
func (m Matrix) Row(i int) []float64 { return m.Data[i*m.Cols : (i+1)*m.Cols] }

// RecordMatrix lays a record out as the 2-row dump: member counts, then flags.
func RecordMatrix(r ExceedanceRecord) Matrix {
	m := NewMatrix(2, r.Len())
	for j := range r.MemberCount {
		m.Set(0, j, float64(r.MemberCount[j]))
		m.Set(1, j, float64(r.ObsFlag[j]))
	}
	return m
}

// MatrixRecord is the inverse of RecordMatrix.
func MatrixRecord(m Matrix) (ExceedanceRecord, error) {
	if m.Rows != 2 {
		return ExceedanceRecord{}, fmt.Errorf("%w: count array has %d rows, want 2", ErrInvalidRecord, m.Rows)
	}
	r := ExceedanceRecord{MemberCount: make([]int, m.Cols), ObsFlag: make([]int, m.Cols)}
	for j := 0; j < m.Cols; j++ {
		c, f := m.At(0, j), m.At(1, j)
		if !isCount(c) || !isCount(f) {
			return ExceedanceRecord{}, fmt.Errorf("%w: cell (%v, %v) at column %d is not a non-negative integer",
				ErrInvalidRecord, c, f, j)
		}
		r.MemberCount[j] = int(c)
		r.ObsFlag[j] = int(f)
	}
	return r, nil
}

func isCount(v float64) bool {
	return v >= 0 && v == math.Trunc(v) && !math.IsInf(v, 0)
}

// TableMatrix lays a summary table out as an (L, R+2) matrix.
func TableMatrix(t SummaryTable) Matrix {
	cols := 0
	if len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	m := NewMatrix(len(t.Rows), cols)
	for i, row := range t.Rows {
		copy(m.Row(i), row)
	}
	return m
}

// MatrixTable is the inverse of TableMatrix; lead times come from column 0.
func MatrixTable(key SummaryKey, m Matrix) (SummaryTable, error) {
	if m.Cols < 2 {
		return SummaryTable{}, fmt.Errorf("summary %s: %d columns, want at least 2", key, m.Cols)
	}
	t := SummaryTable{Key: key, LeadTimes: make([]int, m.Rows), Rows: make([][]float64, m.Rows)}
	for i := 0; i < m.Rows; i++ {
		row := make([]float64, m.Cols)
		copy(row, m.Row(i))
		t.Rows[i] = row
		t.LeadTimes[i] = int(row[0])
	}
	return t, nil
}
