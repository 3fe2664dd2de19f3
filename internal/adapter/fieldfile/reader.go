package fieldfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/exceedance"
)

// metresToMillimetres converts cumulative totals stored in metres.
const metresToMillimetres = 1000

// Reader resolves raw forecast and observation files under two roots.
type Reader struct {
	fcDir  string
	obsDir string
}

// NewReader creates a reader for the forecast and observation roots.
func NewReader(fcDir, obsDir string) *Reader {
	return &Reader{fcDir: fcDir, obsDir: obsDir}
}

// CumulativePath is FC/<sys>/<YYYYMMDDHH>/tp_<YYYYMMDD>_<HH>_<SSS>.msgpack.
func CumulativePath(root, system string, base time.Time, step int) string {
	name := fmt.Sprintf("tp_%s_%s_%03d.msgpack", base.Format("20060102"), base.Format("15"), step)
	return filepath.Join(root, system, base.Format("2006010215"), name)
}

// AccumulatedPath is FC/<sys>/<YYYYMMDDHH>/Pt_BiasCorr_RainPERC/Pt_BC_PERC_<AAA>_<YYYYMMDD>_<HH>_<SSS>.msgpack,
// where SSS is the step ending the window.
func AccumulatedPath(root, system string, base time.Time, step, acc int) string {
	name := fmt.Sprintf("Pt_BC_PERC_%03d_%s_%s_%03d.msgpack", acc, base.Format("20060102"), base.Format("15"), step)
	return filepath.Join(root, system, base.Format("2006010215"), "Pt_BiasCorr_RainPERC", name)
}

// ObservationPath is OBS/<YYYYMMDD>/tp<AA>_obs_<YYYYMMDDHH>.msgpack, keyed by
// the end of the accumulation window.
func ObservationPath(root string, valid time.Time, acc int) string {
	name := fmt.Sprintf("tp%02d_obs_%s.msgpack", acc, valid.Format("2006010215"))
	return filepath.Join(root, valid.Format("20060102"), name)
}

// ReadForecast returns the window total ending at step. Cumulative systems
// need both the step-acc and the step file.
func (r *Reader) ReadForecast(ctx context.Context, sys domain.ForecastSystem, base time.Time, step, acc int) (exceedance.EnsembleField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch sys.Kind {
	case domain.Cumulative:
		start, err := readGrid(CumulativePath(r.fcDir, sys.Name, base, step-acc))
		if err != nil {
			return nil, err
		}
		end, err := readGrid(CumulativePath(r.fcDir, sys.Name, base, step))
		if err != nil {
			return nil, err
		}
		total, err := difference(end, start, metresToMillimetres)
		if err != nil {
			return nil, fmt.Errorf("%s %s step %d: %w", sys.Name, base.Format("2006010215"), step, err)
		}
		return total, nil
	case domain.Accumulated:
		g, err := readGrid(AccumulatedPath(r.fcDir, sys.Name, base, step, acc))
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("system %s: unknown accumulation kind %q", sys.Name, sys.Kind)
	}
}

// ReadObservations returns the gauge totals for the window ending at valid.
func (r *Reader) ReadObservations(ctx context.Context, valid time.Time, acc int) (exceedance.ObservationField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var f observationsFile
	if err := arraystore.ReadMsgpack(ObservationPath(r.obsDir, valid, acc), &f); err != nil {
		return nil, err
	}
	return NewObservations(f.Stations), nil
}

func readGrid(path string) (*Grid, error) {
	var g Grid
	if err := arraystore.ReadMsgpack(path, &g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &g, nil
}

// WriteGrid persists a forecast grid.
func WriteGrid(path string, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return arraystore.WriteMsgpack(path, g)
}

// WriteObservations persists a set of gauge reports.
func WriteObservations(path string, stations []Station) error {
	return arraystore.WriteMsgpack(path, observationsFile{Stations: stations})
}
