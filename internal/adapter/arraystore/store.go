// Package arraystore persists exceedance counts, summary tables and ROC curves
// as msgpack array files in the directory layout the plotting tools expect.
package arraystore

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

const ext = ".msgpack"

// Store reads and writes under a counts root and a summary root.
type Store struct {
	countsDir  string
	summaryDir string
}

// New creates a store. Either root may be empty if the caller never touches it.
func New(countsDir, summaryDir string) *Store {
	return &Store{countsDir: countsDir, summaryDir: summaryDir}
}

// CountPath is <root>/<AA>h/<system>/<thr>/<YYYYMMDDHH>/Count_EM_OBS_<AA>h_<system>_<thr>_<YYYYMMDD>_<HH>_<SSS>.msgpack.
func CountPath(root string, k domain.CountKey) string {
	acc := fmt.Sprintf("%02dh", k.Accumulation)
	thr := domain.FormatThreshold(k.Threshold)
	name := fmt.Sprintf("Count_EM_OBS_%s_%s_%s_%s_%s_%03d%s",
		acc, k.System, thr, k.BaseTime.Format("20060102"), k.BaseTime.Format("15"), k.Step, ext)
	return filepath.Join(root, acc, k.System, thr, k.BaseTime.Format("2006010215"), name)
}

// SummaryPath is <root>/<AA>h/<Stat>/<Stat>_<AA>h_<system>_<thr>.msgpack.
func SummaryPath(root string, k domain.SummaryKey) string {
	acc := fmt.Sprintf("%02dh", k.Accumulation)
	stat := string(k.Statistic)
	name := fmt.Sprintf("%s_%s_%s_%s%s", stat, acc, k.System, domain.FormatThreshold(k.Threshold), ext)
	return filepath.Join(root, acc, stat, name)
}

// CurvePath is <root>/<AA>h/ROC/<system>/<thr>/ROC_<AA>h_<system>_<thr>_<SSS>.msgpack.
func CurvePath(root string, k domain.CurveKey) string {
	acc := fmt.Sprintf("%02dh", k.Accumulation)
	thr := domain.FormatThreshold(k.Threshold)
	name := fmt.Sprintf("ROC_%s_%s_%s_%03d%s", acc, k.System, thr, k.Step, ext)
	return filepath.Join(root, acc, "ROC", k.System, thr, name)
}

// SaveCounts writes the 2-row count array of one record.
func (s *Store) SaveCounts(k domain.CountKey, rec domain.ExceedanceRecord) error {
	if err := WriteMatrix(CountPath(s.countsDir, k), domain.RecordMatrix(rec)); err != nil {
		return fmt.Errorf("save counts %s: %w", k, err)
	}
	return nil
}

// LoadCounts reads one record. A missing file wraps domain.ErrMissingInput.
func (s *Store) LoadCounts(k domain.CountKey) (domain.ExceedanceRecord, error) {
	m, err := ReadMatrix(CountPath(s.countsDir, k))
	if err != nil {
		return domain.ExceedanceRecord{}, err
	}
	return domain.MatrixRecord(m)
}

// LoadDays gathers, for one system, threshold and step, the records of every
// base time that has a count file. Base times without one are skipped and
// returned in missing. A record that fails Validate for the system's ensemble
// size is an error.
func (s *Store) LoadDays(acc int, sys domain.ForecastSystem, threshold float64, step int, bases []time.Time) (days *domain.DaySamples, missing int, err error) {
	days = domain.NewDaySamples()
	for _, base := range bases {
		k := domain.CountKey{Accumulation: acc, System: sys.Name, Threshold: threshold, BaseTime: base, Step: step}
		rec, err := s.LoadCounts(k)
		if errors.Is(err, domain.ErrMissingInput) {
			missing++
			continue
		}
		if err != nil {
			return nil, missing, err
		}
		if err := rec.Validate(sys.Members); err != nil {
			return nil, missing, fmt.Errorf("counts %s: %w", k, err)
		}
		if err := days.Add(base, rec); err != nil {
			return nil, missing, err
		}
	}
	return days, missing, nil
}

// SaveSummary writes a summary table as an (L, R+2) array.
func (s *Store) SaveSummary(t domain.SummaryTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := WriteMatrix(SummaryPath(s.summaryDir, t.Key), domain.TableMatrix(t)); err != nil {
		return fmt.Errorf("save summary %s: %w", t.Key, err)
	}
	return nil
}

// LoadSummary reads a summary table.
func (s *Store) LoadSummary(k domain.SummaryKey) (domain.SummaryTable, error) {
	m, err := ReadMatrix(SummaryPath(s.summaryDir, k))
	if err != nil {
		return domain.SummaryTable{}, err
	}
	return domain.MatrixTable(k, m)
}

// CurveSet is the persisted ROC of an un-resampled sample.
type CurveSet struct {
	FAR       []float64 `msgpack:"far"`
	HR        []float64 `msgpack:"hr"`
	FARz      []float64 `msgpack:"far_fit"`
	HRz       []float64 `msgpack:"hr_fit"`
	Slope     float64   `msgpack:"slope"`
	Intercept float64   `msgpack:"intercept"`
	RSquared  float64   `msgpack:"r_squared"`
	AROC      float64   `msgpack:"aroc"`
	AROCz     float64   `msgpack:"arocz"`
}

// NewCurveSet flattens evaluated curves for persistence.
func NewCurveSet(c verify.Curves) CurveSet {
	cs := CurveSet{
		FAR:       c.Empirical.FAR,
		HR:        c.Empirical.HR,
		FARz:      c.Fitted.FAR,
		HRz:       c.Fitted.HR,
		Slope:     c.Fit.Slope,
		Intercept: c.Fit.Intercept,
		RSquared:  c.Fit.RSquared,
		AROC:      c.Scores.AROC,
		AROCz:     c.Scores.AROCz,
	}
	if c.Fitted.Len() == 0 {
		nan := math.NaN()
		cs.Slope, cs.Intercept, cs.RSquared = nan, nan, nan
	}
	return cs
}

// SaveCurves writes the curves of one lead time.
func (s *Store) SaveCurves(k domain.CurveKey, c verify.Curves) error {
	if err := WriteMsgpack(CurvePath(s.summaryDir, k), NewCurveSet(c)); err != nil {
		return fmt.Errorf("save curves %s/%03d: %w", k.System, k.Step, err)
	}
	return nil
}

// LoadCurves reads the curves of one lead time.
func (s *Store) LoadCurves(k domain.CurveKey) (CurveSet, error) {
	var c CurveSet
	err := ReadMsgpack(CurvePath(s.summaryDir, k), &c)
	return c, err
}
