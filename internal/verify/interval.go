package verify

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Interval summarises a bootstrap distribution.
type Interval struct {
	Lower  float64
	Upper  float64
	Mean   float64
	StdDev float64
	Valid  int // finite values the summary was computed from
}

// ConfidenceInterval returns the central percentile interval at level (in
// percent) of the finite values, with linear interpolation between order
// statistics (Hyndman and Fan type 7). With no finite values every field is NaN.
func ConfidenceInterval(values []float64, level float64) Interval {
	nan := math.NaN()
	out := Interval{Lower: nan, Upper: nan, Mean: nan, StdDev: nan}

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			kept = append(kept, v)
		}
	}
	out.Valid = len(kept)
	if len(kept) == 0 || level <= 0 || level >= 100 {
		return out
	}
	sort.Float64s(kept)

	tail := (100 - level) / 200
	out.Lower = quantile(kept, tail)
	out.Upper = quantile(kept, 1-tail)

	if m, err := stats.Mean(kept); err == nil {
		out.Mean = m
	}
	if sd, err := stats.StandardDeviationSample(kept); err == nil && len(kept) > 1 {
		out.StdDev = sd
	}
	return out
}

// quantile interpolates between the order statistics at floor(h) and ceil(h),
// h = (n-1)q, of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
