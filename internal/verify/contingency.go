// Package verify computes probabilistic verification scores from paired
// ensemble-exceedance counts and binary observations.
package verify

import (
	"fmt"
	"math"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// ContingencyRow is the 2x2 table for one decision threshold.
type ContingencyRow struct {
	Hits             int
	FalseAlarms      int
	Misses           int
	CorrectNegatives int
}

// Total returns the number of cases in the row.
func (r ContingencyRow) Total() int {
	return r.Hits + r.FalseAlarms + r.Misses + r.CorrectNegatives
}

// HitRate is hits/(hits+misses), NaN when no events were observed.
func (r ContingencyRow) HitRate() float64 {
	return ratio(r.Hits, r.Hits+r.Misses)
}

// FalseAlarmRate is false_alarms/(false_alarms+correct_negatives), NaN when
// every case was an event.
func (r ContingencyRow) FalseAlarmRate() float64 {
	return ratio(r.FalseAlarms, r.FalseAlarms+r.CorrectNegatives)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

// ContingencyTable holds NumMembers+1 rows. Row k issues a yes-forecast when
// at least NumMembers-k members exceed, so row 0 is the strictest decision and
// row NumMembers says yes whenever any member count (including zero) is present.
type ContingencyTable struct {
	NumMembers int
	Rows       []ContingencyRow
}

// histogram counts, per member count c, how many entries carry it and how
// many of those observed the event.
type histogram struct {
	issued   []int
	observed []int
	events   int
	n        int
}

func newHistogram(s domain.VerificationSample, numMembers int) (histogram, error) {
	if len(s.MemberCount) != len(s.ObsFlag) {
		return histogram{}, fmt.Errorf("%w: %d member counts vs %d observation flags",
			domain.ErrInvalidRecord, len(s.MemberCount), len(s.ObsFlag))
	}
	h := histogram{
		issued:   make([]int, numMembers+1),
		observed: make([]int, numMembers+1),
		n:        len(s.MemberCount),
	}
	for i, c := range s.MemberCount {
		if c < 0 || c > numMembers {
			return histogram{}, fmt.Errorf("%w: member count %d outside [0,%d]", domain.ErrInvalidRecord, c, numMembers)
		}
		switch s.ObsFlag[i] {
		case 0:
		case 1:
			h.observed[c]++
			h.events++
		default:
			return histogram{}, fmt.Errorf("%w: observation flag %d at index %d", domain.ErrInvalidRecord, s.ObsFlag[i], i)
		}
		h.issued[c]++
	}
	return h, nil
}

// NewContingencyTable builds the probabilistic contingency table of a sample.
func NewContingencyTable(s domain.VerificationSample, numMembers int) (ContingencyTable, error) {
	if numMembers <= 0 {
		return ContingencyTable{}, fmt.Errorf("number of members must be positive, got %d", numMembers)
	}
	h, err := newHistogram(s, numMembers)
	if err != nil {
		return ContingencyTable{}, err
	}
	return h.table(numMembers), nil
}

func (h histogram) table(numMembers int) ContingencyTable {
	ct := ContingencyTable{NumMembers: numMembers, Rows: make([]ContingencyRow, numMembers+1)}
	hits, yes := 0, 0
	for k := 0; k <= numMembers; k++ {
		c := numMembers - k
		hits += h.observed[c]
		yes += h.issued[c]
		falseAlarms := yes - hits
		ct.Rows[k] = ContingencyRow{
			Hits:             hits,
			FalseAlarms:      falseAlarms,
			Misses:           h.events - hits,
			CorrectNegatives: (h.n - h.events) - falseAlarms,
		}
	}
	return ct
}

// HitRates returns the hit rate of every row in decision-index order.
func (ct ContingencyTable) HitRates() []float64 {
	out := make([]float64, len(ct.Rows))
	for i, r := range ct.Rows {
		out[i] = r.HitRate()
	}
	return out
}

// FalseAlarmRates returns the false-alarm rate of every row in decision-index order.
func (ct ContingencyTable) FalseAlarmRates() []float64 {
	out := make([]float64, len(ct.Rows))
	for i, r := range ct.Rows {
		out[i] = r.FalseAlarmRate()
	}
	return out
}
