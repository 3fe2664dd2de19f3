// Package report renders persisted verification results as text plots.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

const (
	plotWidth  = 72
	plotHeight = 18
)

var palette = []asciigraph.AnsiColor{
	asciigraph.DarkCyan,
	asciigraph.OrangeRed,
	asciigraph.DimGray,
	asciigraph.Green,
	asciigraph.Blue,
}

// IntervalSeries is one system's statistic against lead time.
type IntervalSeries struct {
	System string
	Rows   []domain.SummaryRow // ordered by lead time
}

// RenderIntervals plots the original value and the interval bounds of every
// series against lead time. Lead times whose original value is undefined
// are dropped from that series and listed under the plot.
func RenderIntervals(title string, series []IntervalSeries) string {
	var (
		lines  [][]float64
		colors []asciigraph.AnsiColor
		legend []string
		notes  []string
	)
	for i, s := range series {
		var orig, lo, hi []float64
		var dropped []string
		for _, r := range s.Rows {
			if math.IsNaN(r.Original) {
				dropped = append(dropped, fmt.Sprintf("%03d", r.LeadTime))
				continue
			}
			orig = append(orig, r.Original)
			lo = append(lo, orNear(r.Lower, r.Original))
			hi = append(hi, orNear(r.Upper, r.Original))
		}
		if len(dropped) > 0 {
			notes = append(notes, fmt.Sprintf("%s: no value at steps %s", s.System, strings.Join(dropped, ",")))
		}
		if len(orig) == 0 {
			continue
		}
		c := palette[i%len(palette)]
		lines = append(lines, orig, lo, hi)
		colors = append(colors, c, c, c)
		legend = append(legend, fmt.Sprintf("%s (%d lead times, %s to %s)",
			s.System, len(orig), firstLead(s.Rows), lastLead(s.Rows)))
	}
	if len(lines) == 0 {
		return title + "\n(no data)\n"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(asciigraph.PlotMany(lines,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("original value with interval bounds vs lead time"),
	))
	b.WriteString("\n\n")
	for _, l := range legend {
		b.WriteString("  " + l + "\n")
	}
	for _, n := range notes {
		b.WriteString("  " + n + "\n")
	}
	return b.String()
}

// RenderROC plots the empirical and, when present, the fitted binormal ROC
// on a regular false-alarm-rate axis.
func RenderROC(title string, empirical, fitted verify.ROCCurve, aroc, arocz float64) string {
	axis := unitAxis(plotWidth)
	lines := [][]float64{axis, resample(empirical, axis)}
	colors := []asciigraph.AnsiColor{asciigraph.Black, asciigraph.DarkCyan}
	if fitted.Len() > 1 {
		lines = append(lines, resample(fitted, axis))
		colors = append(colors, asciigraph.OrangeRed)
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(asciigraph.PlotMany(lines,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("hit rate vs false alarm rate (0 to 1)"),
	))
	fmt.Fprintf(&b, "\n\n  AROC=%.2f  AROCz=%.3f\n", aroc, arocz)
	return b.String()
}

// ReliabilitySeries is one system's reliability diagram.
type ReliabilitySeries struct {
	System string
	Bins   []verify.ReliabilityBin
}

// RenderReliability plots observed frequency against forecast probability,
// with the diagonal of perfect reliability.
func RenderReliability(title string, series []ReliabilitySeries) string {
	axis := unitAxis(plotWidth)
	lines := [][]float64{axis}
	colors := []asciigraph.AnsiColor{asciigraph.Black}
	var legend []string
	for i, s := range series {
		if len(s.Bins) == 0 {
			continue
		}
		c := verify.ROCCurve{FAR: make([]float64, len(s.Bins)), HR: make([]float64, len(s.Bins))}
		for j, bin := range s.Bins {
			c.FAR[j] = bin.Probability
			c.HR[j] = bin.ObservedFrequency
		}
		lines = append(lines, resample(c, axis))
		colors = append(colors, palette[i%len(palette)])
		legend = append(legend, fmt.Sprintf("%s (%d bins)", s.System, len(s.Bins)))
	}
	if len(lines) == 1 {
		return title + "\n(no data)\n"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(asciigraph.PlotMany(lines,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("observed relative frequency vs forecast probability (0 to 1)"),
	))
	b.WriteString("\n\n")
	for _, l := range legend {
		b.WriteString("  " + l + "\n")
	}
	return b.String()
}

// RenderSharpness plots log10 of the number of forecasts per probability bin.
func RenderSharpness(title string, series []ReliabilitySeries) string {
	axis := unitAxis(plotWidth)
	var (
		lines  [][]float64
		colors []asciigraph.AnsiColor
		legend []string
	)
	for i, s := range series {
		if len(s.Bins) == 0 {
			continue
		}
		c := verify.ROCCurve{FAR: make([]float64, len(s.Bins)), HR: make([]float64, len(s.Bins))}
		total := 0
		for j, bin := range s.Bins {
			c.FAR[j] = bin.Probability
			c.HR[j] = math.Log10(float64(bin.Count))
			total += bin.Count
		}
		lines = append(lines, resample(c, axis))
		colors = append(colors, palette[i%len(palette)])
		legend = append(legend, fmt.Sprintf("%s (%d forecasts)", s.System, total))
	}
	if len(lines) == 0 {
		return title + "\n(no data)\n"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(asciigraph.PlotMany(lines,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.LowerBound(0),
		asciigraph.Precision(1),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("log10 forecast count vs forecast probability (0 to 1)"),
	))
	b.WriteString("\n\n")
	for _, l := range legend {
		b.WriteString("  " + l + "\n")
	}
	return b.String()
}

// unitAxis returns n evenly spaced points from 0 to 1.
func unitAxis(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n-1)
	}
	return out
}

// resample linearly interpolates the curve's y values (HR) at each x in axis.
// Points are ordered by x first; non-finite points are ignored. Outside the
// curve's x range the nearest end value is held.
func resample(c verify.ROCCurve, axis []float64) []float64 {
	type pt struct{ x, y float64 }
	pts := make([]pt, 0, c.Len())
	for i := range c.HR {
		x, y := c.FAR[i], c.HR[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, pt{x, y})
	}
	out := make([]float64, len(axis))
	if len(pts) == 0 {
		return out
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	k := 0
	for i, x := range axis {
		for k+1 < len(pts) && pts[k+1].x <= x {
			k++
		}
		switch {
		case x <= pts[0].x:
			out[i] = pts[0].y
		case k+1 >= len(pts):
			out[i] = pts[len(pts)-1].y
		default:
			a, b := pts[k], pts[k+1]
			if b.x == a.x {
				out[i] = b.y
				continue
			}
			out[i] = a.y + (b.y-a.y)*(x-a.x)/(b.x-a.x)
		}
	}
	return out
}

func orNear(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func firstLead(rows []domain.SummaryRow) string {
	for _, r := range rows {
		if !math.IsNaN(r.Original) {
			return fmt.Sprintf("%03d", r.LeadTime)
		}
	}
	return "-"
}

func lastLead(rows []domain.SummaryRow) string {
	for i := len(rows) - 1; i >= 0; i-- {
		if !math.IsNaN(rows[i].Original) {
			return fmt.Sprintf("%03d", rows[i].LeadTime)
		}
	}
	return "-"
}
