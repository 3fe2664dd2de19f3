package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AccumulationKind describes how a forecasting system stores rainfall totals.
type AccumulationKind string

const (
	// Cumulative fields hold totals since the model start in metres; the
	// window total is the difference of two steps converted to millimetres.
	Cumulative AccumulationKind = "cumulative"

	// Accumulated fields already hold the window total in millimetres and are
	// stored under the step that ends the window.
	Accumulated AccumulationKind = "accumulated"
)

// ForecastSystem is an ensemble forecasting system under verification.
type ForecastSystem struct {
	Name    string
	Members int
	Kind    AccumulationKind
}

// ParseForecastSystem parses "name:members:kind", e.g. "ENS:51:cumulative".
func ParseForecastSystem(s string) (ForecastSystem, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return ForecastSystem{}, fmt.Errorf("forecast system %q: want name:members:kind", s)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return ForecastSystem{}, fmt.Errorf("forecast system %q: empty name", s)
	}
	members, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || members <= 0 {
		return ForecastSystem{}, fmt.Errorf("forecast system %q: member count must be a positive integer", s)
	}
	kind := AccumulationKind(strings.ToLower(strings.TrimSpace(parts[2])))
	if kind != Cumulative && kind != Accumulated {
		return ForecastSystem{}, fmt.Errorf("forecast system %q: unknown accumulation kind %q", s, kind)
	}
	return ForecastSystem{Name: name, Members: members, Kind: kind}, nil
}

func (s ForecastSystem) String() string {
	return fmt.Sprintf("%s:%d:%s", s.Name, s.Members, s.Kind)
}

// FormatThreshold renders a threshold the way file paths spell it:
// 0.2 -> "0.2", 10 -> "10".
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseThresholds parses a comma-separated list of non-negative thresholds.
func ParseThresholds(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold %q: %w", f, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("threshold %q: must be non-negative", f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no thresholds in %q", s)
	}
	return out, nil
}
