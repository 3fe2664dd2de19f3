package verify

import "math"

// ROCCurve is the empirical ROC in decision-index order, closed with (0,0)
// at the start and (1,1) at the end. Tied points are kept.
type ROCCurve struct {
	FAR []float64
	HR  []float64
}

// Len returns the number of points including the closing endpoints.
func (c ROCCurve) Len() int { return len(c.HR) }

// EmpiricalROC closes the (FAR, HR) sequence of a contingency table.
func EmpiricalROC(ct ContingencyTable) ROCCurve {
	far := ct.FalseAlarmRates()
	hr := ct.HitRates()
	c := ROCCurve{
		FAR: make([]float64, 0, len(far)+2),
		HR:  make([]float64, 0, len(hr)+2),
	}
	c.FAR = append(c.FAR, 0)
	c.HR = append(c.HR, 0)
	c.FAR = append(c.FAR, far...)
	c.HR = append(c.HR, hr...)
	c.FAR = append(c.FAR, 1)
	c.HR = append(c.HR, 1)
	return c
}

// TrapezoidalSum is the discrete trapezoid sum over consecutive curve points,
// unrounded. NaN rates propagate.
func TrapezoidalSum(c ROCCurve) float64 {
	var area float64
	for i := 0; i+1 < len(c.HR); i++ {
		area += (c.HR[i] + c.HR[i+1]) * (c.FAR[i+1] - c.FAR[i]) / 2
	}
	return area
}

// TrapezoidalArea is the AROC: the trapezoid sum rounded to two decimals,
// ties to even.
func TrapezoidalArea(c ROCCurve) float64 {
	return roundTo(TrapezoidalSum(c), 2)
}

func roundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
