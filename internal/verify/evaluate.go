package verify

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Scores holds the three statistics computed for one sample.
type Scores struct {
	BSrel float64
	AROC  float64
	AROCz float64
}

// NaNScores is the value recorded when a sample could not be evaluated.
func NaNScores() Scores {
	nan := math.NaN()
	return Scores{BSrel: nan, AROC: nan, AROCz: nan}
}

// Get returns the score for a statistic.
func (s Scores) Get(stat domain.Statistic) float64 {
	switch stat {
	case domain.StatBSrel:
		return s.BSrel
	case domain.StatAROC:
		return s.AROC
	case domain.StatAROCz:
		return s.AROCz
	}
	return math.NaN()
}

// Curves carries the ROC of an un-resampled sample and its binormal fit.
type Curves struct {
	Empirical ROCCurve
	Fitted    ROCCurve // empty when the fit is degenerate
	Fit       BinormalFit
	Scores    Scores
}

// Evaluate computes BSrel, AROC and AROCz from a single histogram of the
// sample. A degenerate binormal fit yields AROCz = NaN rather than an error.
func Evaluate(s domain.VerificationSample, numMembers int) (Scores, error) {
	c, err := EvaluateCurves(s, numMembers)
	if err != nil {
		return NaNScores(), err
	}
	return c.Scores, nil
}

// EvaluateCurves is Evaluate that also returns the curves it computed.
func EvaluateCurves(s domain.VerificationSample, numMembers int) (Curves, error) {
	if numMembers <= 0 {
		return Curves{}, fmt.Errorf("number of members must be positive, got %d", numMembers)
	}
	if s.Len() == 0 {
		return Curves{}, domain.ErrEmptySample
	}
	h, err := newHistogram(s, numMembers)
	if err != nil {
		return Curves{}, err
	}

	roc := EmpiricalROC(h.table(numMembers))
	out := Curves{
		Empirical: roc,
		Scores: Scores{
			BSrel: h.reliability(numMembers),
			AROC:  TrapezoidalArea(roc),
			AROCz: math.NaN(),
		},
	}

	fit, err := FitBinormal(roc)
	switch {
	case err == nil:
		out.Fit = fit
		out.Fitted = fit.Curve()
		out.Scores.AROCz = fit.Area()
	case errors.Is(err, domain.ErrDegenerateFit):
	default:
		return Curves{}, err
	}
	return out, nil
}
