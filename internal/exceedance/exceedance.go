// Package exceedance turns an ensemble forecast and a set of point
// observations into per-station exceedance counts for rainfall thresholds.
package exceedance

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// EnsembleField is a gridded ensemble forecast of rainfall in mm.
type EnsembleField interface {
	Members() int
	// NearestValues returns, for one member, the value of the grid point
	// nearest to each location.
	NearestValues(member int, locs []domain.Location) ([]float64, error)
}

// ObservationField is a set of point rainfall observations in mm.
type ObservationField interface {
	Locations() []domain.Location
	Values() []float64
}

// FieldReader resolves forecast and observation fields. Implementations
// return an error wrapping domain.ErrMissingInput when a file does not exist.
type FieldReader interface {
	ReadForecast(ctx context.Context, sys domain.ForecastSystem, base time.Time, step, acc int) (EnsembleField, error)
	ReadObservations(ctx context.Context, valid time.Time, acc int) (ObservationField, error)
}

// Sample extracts the forecast at every observation location, one row per
// ensemble member.
func Sample(fc EnsembleField, obs ObservationField) (domain.Matrix, error) {
	locs := obs.Locations()
	m := domain.NewMatrix(fc.Members(), len(locs))
	for member := 0; member < fc.Members(); member++ {
		vals, err := fc.NearestValues(member, locs)
		if err != nil {
			return domain.Matrix{}, fmt.Errorf("sample member %d: %w", member, err)
		}
		if len(vals) != len(locs) {
			return domain.Matrix{}, fmt.Errorf("sample member %d: %d values for %d locations", member, len(vals), len(locs))
		}
		copy(m.Row(member), vals)
	}
	return m, nil
}

// Count compares sampled member values and observations against threshold.
// Both comparisons are inclusive. NaN never exceeds.
func Count(sampled domain.Matrix, obs []float64, threshold float64) (domain.ExceedanceRecord, error) {
	if sampled.Cols != len(obs) {
		return domain.ExceedanceRecord{}, fmt.Errorf("%w: %d sampled locations vs %d observations",
			domain.ErrInvalidRecord, sampled.Cols, len(obs))
	}
	rec := domain.ExceedanceRecord{
		MemberCount: make([]int, len(obs)),
		ObsFlag:     make([]int, len(obs)),
	}
	for member := 0; member < sampled.Rows; member++ {
		for j, v := range sampled.Row(member) {
			if v >= threshold {
				rec.MemberCount[j]++
			}
		}
	}
	for j, v := range obs {
		if v >= threshold {
			rec.ObsFlag[j] = 1
		}
	}
	return rec, nil
}

// CountAll samples the forecast once and counts every threshold.
func CountAll(fc EnsembleField, obs ObservationField, thresholds []float64) (map[float64]domain.ExceedanceRecord, error) {
	sampled, err := Sample(fc, obs)
	if err != nil {
		return nil, err
	}
	values := obs.Values()
	out := make(map[float64]domain.ExceedanceRecord, len(thresholds))
	for _, thr := range thresholds {
		rec, err := Count(sampled, values, thr)
		if err != nil {
			return nil, err
		}
		out[thr] = rec
	}
	return out, nil
}
