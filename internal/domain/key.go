package domain

import (
	"fmt"
	"time"
)

// Statistic names a verification score written to a summary table.
type Statistic string

const (
	StatBSrel Statistic = "BSrel"
	StatAROC  Statistic = "AROCt"
	StatAROCz Statistic = "AROCz"
)

// Statistics lists every statistic the verify stage produces, in output order.
var Statistics = []Statistic{StatBSrel, StatAROC, StatAROCz}

// CountKey identifies one persisted exceedance record.
type CountKey struct {
	Accumulation int
	System       string
	Threshold    float64
	BaseTime     time.Time
	Step         int
}

func (k CountKey) String() string {
	return fmt.Sprintf("%02dh/%s/%s/%s/%03d",
		k.Accumulation, k.System, FormatThreshold(k.Threshold), k.BaseTime.Format("2006010215"), k.Step)
}

// ValidTime returns the end of the accumulation window.
func (k CountKey) ValidTime() time.Time {
	return k.BaseTime.Add(time.Duration(k.Step) * time.Hour)
}

// SummaryKey identifies one persisted summary table.
type SummaryKey struct {
	Accumulation int
	System       string
	Threshold    float64
	Statistic    Statistic
}

func (k SummaryKey) String() string {
	return fmt.Sprintf("%02dh/%s/%s/%s", k.Accumulation, k.System, FormatThreshold(k.Threshold), k.Statistic)
}

// CurveKey identifies the ROC curves persisted for one lead time.
type CurveKey struct {
	Accumulation int
	System       string
	Threshold    float64
	Step         int
}
