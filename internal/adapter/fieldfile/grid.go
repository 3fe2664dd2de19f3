// Package fieldfile reads forecast grids and point observations stored as
// msgpack files in the raw-data directory layout.
package fieldfile

import (
	"fmt"
	"math"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Grid is an ensemble forecast on a regular latitude/longitude grid. Member m
// holds len(Lats)*len(Lons) values in row-major (lat, lon) order.
type Grid struct {
	Lats   []float64   `msgpack:"lats"`
	Lons   []float64   `msgpack:"lons"`
	Values [][]float32 `msgpack:"members"`
	Units  string      `msgpack:"units"`
}

// Members returns the ensemble size.
func (g *Grid) Members() int { return len(g.Values) }

// Validate checks that every member covers the full grid.
func (g *Grid) Validate() error {
	if len(g.Lats) == 0 || len(g.Lons) == 0 {
		return fmt.Errorf("empty grid (%d x %d)", len(g.Lats), len(g.Lons))
	}
	n := len(g.Lats) * len(g.Lons)
	for m, v := range g.Values {
		if len(v) != n {
			return fmt.Errorf("member %d has %d values, want %d", m, len(v), n)
		}
	}
	return nil
}

// NearestValues returns member values at the grid points nearest each location.
func (g *Grid) NearestValues(member int, locs []domain.Location) ([]float64, error) {
	if member < 0 || member >= len(g.Values) {
		return nil, fmt.Errorf("member %d outside [0,%d)", member, len(g.Values))
	}
	field := g.Values[member]
	out := make([]float64, len(locs))
	for i, loc := range locs {
		out[i] = float64(field[g.nearest(loc)])
	}
	return out, nil
}

func (g *Grid) nearest(loc domain.Location) int {
	i := nearestIndex(g.Lats, loc.Lat, false)
	j := nearestIndex(g.Lons, loc.Lon, g.global())
	return i*len(g.Lons) + j
}

// global reports whether the longitudes wrap around the whole circle.
func (g *Grid) global() bool {
	if len(g.Lons) < 2 {
		return false
	}
	step := math.Abs(g.Lons[1] - g.Lons[0])
	return math.Abs(step*float64(len(g.Lons))-360) < step/2
}

// nearestIndex locates v on an evenly spaced axis, ascending or descending.
// Longitudes are compared modulo 360; on a global axis the index wraps.
func nearestIndex(axis []float64, v float64, wrap bool) int {
	n := len(axis)
	if n == 1 {
		return 0
	}
	step := (axis[n-1] - axis[0]) / float64(n-1)
	d := v - axis[0]
	if wrap {
		d = math.Mod(d, 360)
		if d < 0 {
			d += 360
		}
		if step < 0 {
			d -= 360
		}
		return int(math.Round(d/step)) % n
	}
	if step == 0 {
		return 0
	}
	k := int(math.Round(d / step))
	return min(max(k, 0), n-1)
}

// difference returns member-wise (a - b) * factor, turning two cumulative
// fields into a window total.
func difference(a, b *Grid, factor float64) (*Grid, error) {
	if len(a.Values) != len(b.Values) || len(a.Lats) != len(b.Lats) || len(a.Lons) != len(b.Lons) {
		return nil, fmt.Errorf("cumulative fields differ in shape")
	}
	out := &Grid{Lats: a.Lats, Lons: a.Lons, Values: make([][]float32, len(a.Values)), Units: "mm"}
	for m := range a.Values {
		if len(a.Values[m]) != len(b.Values[m]) {
			return nil, fmt.Errorf("member %d differs in length", m)
		}
		v := make([]float32, len(a.Values[m]))
		for p := range v {
			v[p] = float32((float64(a.Values[m][p]) - float64(b.Values[m][p])) * factor)
		}
		out.Values[m] = v
	}
	return out, nil
}

// Station is one rain gauge report.
type Station struct {
	ID    string  `msgpack:"id"`
	Lat   float64 `msgpack:"lat"`
	Lon   float64 `msgpack:"lon"`
	Value float64 `msgpack:"value"`
}

// observationsFile is the on-disk form of an observation set.
type observationsFile struct {
	Stations []Station `msgpack:"stations"`
}

// Observations is the set of gauge reports valid at one time. It is
// read-only once built and safe to share between goroutines.
type Observations struct {
	stations []Station
	locs     []domain.Location
	values   []float64
}

// NewObservations indexes stations in the given order.
func NewObservations(stations []Station) *Observations {
	o := &Observations{
		stations: stations,
		locs:     make([]domain.Location, len(stations)),
		values:   make([]float64, len(stations)),
	}
	for i, s := range stations {
		o.locs[i] = domain.Location{Lat: s.Lat, Lon: s.Lon}
		o.values[i] = s.Value
	}
	return o
}

// Stations returns the reports in file order.
func (o *Observations) Stations() []Station { return o.stations }

// Locations returns station positions in file order.
func (o *Observations) Locations() []domain.Location { return o.locs }

// Values returns station values in file order.
func (o *Observations) Values() []float64 { return o.values }
