package verify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Sampling of the z-space when drawing the fitted curve.
const (
	curveZMin  = -10.0
	curveZMax  = 10.0
	curveZStep = 0.1
)

// BinormalFit is the straight line HRz = Slope*FARz + Intercept fitted in
// probit space to the finite points of an empirical ROC curve.
type BinormalFit struct {
	Slope     float64
	Intercept float64
	RSquared  float64

	// FARz and HRz are the finite probit points the line was fitted through.
	FARz []float64
	HRz  []float64
}

// probit is the inverse standard normal CDF. 0 and 1 map to -Inf and +Inf.
func probit(p float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	return distuv.UnitNormal.Quantile(p)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FitBinormal regresses probit(HR) on probit(FAR), discarding every pair where
// either transform is non-finite.
func FitBinormal(c ROCCurve) (BinormalFit, error) {
	var farz, hrz []float64
	for i := range c.HR {
		x, y := probit(c.FAR[i]), probit(c.HR[i])
		if !finite(x) || !finite(y) {
			continue
		}
		farz = append(farz, x)
		hrz = append(hrz, y)
	}
	if len(farz) < 2 {
		return BinormalFit{}, fmt.Errorf("%w: %d finite points", domain.ErrDegenerateFit, len(farz))
	}
	if stat.Variance(farz, nil) == 0 {
		return BinormalFit{}, fmt.Errorf("%w: false-alarm z-scores have no spread", domain.ErrDegenerateFit)
	}

	intercept, slope := stat.LinearRegression(farz, hrz, nil, false)
	return BinormalFit{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  stat.RSquared(farz, hrz, nil, intercept, slope),
		FARz:      farz,
		HRz:       hrz,
	}, nil
}

// Area is the binormal AROCz: Phi(b / sqrt(a^2+1) / sqrt(2)).
func (f BinormalFit) Area() float64 {
	z := f.Intercept / math.Sqrt(f.Slope*f.Slope+1) / math.Sqrt2
	return distuv.UnitNormal.CDF(z)
}

// Predict evaluates the fitted line at a false-alarm z-score.
func (f BinormalFit) Predict(farz float64) float64 {
	return f.Slope*farz + f.Intercept
}

// Curve samples the fitted ROC in probability space for drawing.
func (f BinormalFit) Curve() ROCCurve {
	n := int(math.Round((curveZMax - curveZMin) / curveZStep))
	c := ROCCurve{FAR: make([]float64, n), HR: make([]float64, n)}
	for i := 0; i < n; i++ {
		z := curveZMin + float64(i)*curveZStep
		c.FAR[i] = distuv.UnitNormal.CDF(z)
		c.HR[i] = distuv.UnitNormal.CDF(f.Predict(z))
	}
	return c
}
