// Package mockdata writes a small synthetic forecast and observation archive
// in the raw-data layout read by fieldfile. Output is fully determined by the
// options, so tests and local runs can regenerate identical inputs.
package mockdata

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/fieldfile"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Options describes the archive to generate.
type Options struct {
	Systems      []domain.ForecastSystem
	BaseTimes    []time.Time
	LeadTimes    []int
	Accumulation int
	// Grid is NLat x NLon points spaced Spacing degrees from (Lat0, Lon0).
	// Every grid point carries a rain gauge.
	NLat, NLon int
	Lat0, Lon0 float64
	Spacing    float64
	Seed       uint64
}

// DefaultOptions returns a small European domain.
func DefaultOptions() Options {
	return Options{
		NLat:    8,
		NLon:    10,
		Lat0:    42,
		Lon0:    -4,
		Spacing: 1,
		Seed:    1,
	}
}

// Written counts the files produced by Write.
type Written struct {
	Forecasts    int
	Observations int
}

// Generator produces synthetic rainfall. The truth is a sequence of slot
// totals per grid point; observations sum truth slots over the window and
// each ensemble member perturbs the truth with lead-dependent noise.
type Generator struct {
	opts  Options
	slot  time.Duration
	lats  []float64
	lons  []float64
	truth map[int64][]float64
}

// New validates opts and returns a generator.
func New(opts Options) (*Generator, error) {
	if len(opts.Systems) == 0 || len(opts.BaseTimes) == 0 || len(opts.LeadTimes) == 0 {
		return nil, errors.New("mockdata: systems, base times and lead times are required")
	}
	if opts.Accumulation <= 0 {
		return nil, fmt.Errorf("mockdata: accumulation %d must be positive", opts.Accumulation)
	}
	if opts.NLat <= 0 || opts.NLon <= 0 || opts.Spacing <= 0 {
		return nil, errors.New("mockdata: grid must be non-empty with positive spacing")
	}
	step := gcd(opts.Accumulation, 24)
	for _, lt := range opts.LeadTimes {
		if lt < opts.Accumulation {
			return nil, fmt.Errorf("mockdata: lead time %d shorter than accumulation %d", lt, opts.Accumulation)
		}
		step = gcd(step, lt)
	}
	for _, b := range opts.BaseTimes {
		step = gcd(step, b.Hour())
	}

	g := &Generator{
		opts:  opts,
		slot:  time.Duration(step) * time.Hour,
		lats:  make([]float64, opts.NLat),
		lons:  make([]float64, opts.NLon),
		truth: make(map[int64][]float64),
	}
	for i := range g.lats {
		g.lats[i] = opts.Lat0 + float64(i)*opts.Spacing
	}
	for j := range g.lons {
		g.lons[j] = opts.Lon0 + float64(j)*opts.Spacing
	}
	return g, nil
}

// Stations returns the gauge network: one station per grid point.
func (g *Generator) Stations() []fieldfile.Station {
	out := make([]fieldfile.Station, 0, len(g.lats)*len(g.lons))
	for i, lat := range g.lats {
		for j, lon := range g.lons {
			out = append(out, fieldfile.Station{
				ID:  fmt.Sprintf("G%02d%02d", i, j),
				Lat: lat,
				Lon: lon,
			})
		}
	}
	return out
}

// Write generates every forecast file the count stage will ask for and the
// observations for every valid time.
func (g *Generator) Write(fcDir, obsDir string) (Written, error) {
	var w Written
	acc := g.opts.Accumulation
	window := time.Duration(acc) * time.Hour

	valid := make(map[int64]time.Time)
	for _, base := range g.opts.BaseTimes {
		for _, lt := range g.opts.LeadTimes {
			v := base.Add(time.Duration(lt) * time.Hour)
			valid[v.Unix()] = v
		}
	}
	times := make([]int64, 0, len(valid))
	for k := range valid {
		times = append(times, k)
	}
	slices.Sort(times)
	for _, k := range times {
		v := valid[k]
		totals := g.truthWindow(v.Add(-window), v)
		stations := g.Stations()
		for i := range stations {
			stations[i].Value = round(totals[i], 1)
		}
		if err := fieldfile.WriteObservations(fieldfile.ObservationPath(obsDir, v, acc), stations); err != nil {
			return w, err
		}
		w.Observations++
	}

	for si, sys := range g.opts.Systems {
		for _, base := range g.opts.BaseTimes {
			n, err := g.writeForecast(fcDir, si, sys, base)
			w.Forecasts += n
			if err != nil {
				return w, err
			}
		}
	}
	return w, nil
}

func (g *Generator) writeForecast(fcDir string, si int, sys domain.ForecastSystem, base time.Time) (int, error) {
	acc := g.opts.Accumulation
	last := slices.Max(g.opts.LeadTimes)
	nslots := int(time.Duration(last) * time.Hour / g.slot)
	points := len(g.lats) * len(g.lons)

	// members[m][s][p] is member m's rain in slot s at point p.
	members := make([][][]float64, sys.Members)
	for m := range members {
		rng := rand.New(rand.NewPCG(g.opts.Seed, mix(uint64(si), uint64(base.Unix()), uint64(m))))
		slotsRain := make([][]float64, nslots)
		for s := range slotsRain {
			end := base.Add(time.Duration(s+1) * g.slot)
			hours := end.Sub(base).Hours()
			slotsRain[s] = perturb(rng, g.truthSlot(end), hours)
		}
		members[m] = slotsRain
	}

	sum := func(from, to int) *fieldfile.Grid {
		grid := &fieldfile.Grid{Lats: g.lats, Lons: g.lons, Values: make([][]float32, sys.Members)}
		for m := range members {
			v := make([]float32, points)
			for s := from; s < to; s++ {
				for p, r := range members[m][s] {
					v[p] += float32(r)
				}
			}
			grid.Values[m] = v
		}
		return grid
	}
	slotOf := func(hours int) int { return int(time.Duration(hours) * time.Hour / g.slot) }

	written := 0
	switch sys.Kind {
	case domain.Cumulative:
		steps := make(map[int]struct{})
		for _, lt := range g.opts.LeadTimes {
			steps[lt] = struct{}{}
			steps[lt-acc] = struct{}{}
		}
		for step := range steps {
			grid := sum(0, slotOf(step))
			grid.Units = "m"
			for m := range grid.Values {
				for p := range grid.Values[m] {
					grid.Values[m][p] /= 1000
				}
			}
			if err := fieldfile.WriteGrid(fieldfile.CumulativePath(fcDir, sys.Name, base, step), grid); err != nil {
				return written, err
			}
			written++
		}
	case domain.Accumulated:
		for _, lt := range g.opts.LeadTimes {
			grid := sum(slotOf(lt-acc), slotOf(lt))
			grid.Units = "mm"
			if err := fieldfile.WriteGrid(fieldfile.AccumulatedPath(fcDir, sys.Name, base, lt, acc), grid); err != nil {
				return written, err
			}
			written++
		}
	default:
		return 0, fmt.Errorf("mockdata: system %s has unknown kind %q", sys.Name, sys.Kind)
	}
	return written, nil
}

// truthWindow sums truth slots ending in (from, to].
func (g *Generator) truthWindow(from, to time.Time) []float64 {
	out := make([]float64, len(g.lats)*len(g.lons))
	for end := from.Add(g.slot); !end.After(to); end = end.Add(g.slot) {
		for p, r := range g.truthSlot(end) {
			out[p] += r
		}
	}
	return out
}

// truthSlot returns the rain in the slot ending at end, generated once per slot.
func (g *Generator) truthSlot(end time.Time) []float64 {
	if v, ok := g.truth[end.Unix()]; ok {
		return v
	}
	rng := rand.New(rand.NewPCG(g.opts.Seed, mix(0xfeed, uint64(end.Unix()), 0)))
	hours := g.slot.Hours()
	v := make([]float64, len(g.lats)*len(g.lons))
	for p := range v {
		if rng.Float64() < 0.35 {
			v[p] = rng.ExpFloat64() * 0.4 * hours
		}
	}
	g.truth[end.Unix()] = v
	return v
}

// perturb applies multiplicative lognormal error that grows with lead time,
// plus occasional false rain.
func perturb(rng *rand.Rand, truth []float64, hours float64) []float64 {
	sigma := 0.3 + hours/200
	out := make([]float64, len(truth))
	for p, t := range truth {
		switch {
		case t > 0:
			out[p] = t * math.Exp(sigma*rng.NormFloat64()-sigma*sigma/2)
		case rng.Float64() < 0.08+hours/4000:
			out[p] = rng.ExpFloat64() * 0.5
		}
	}
	return out
}

func mix(a, b, c uint64) uint64 {
	h := a*0x9e3779b97f4a7c15 ^ b
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= c
	h ^= h >> 29
	return h
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
