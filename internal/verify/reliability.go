package verify

import (
	"fmt"
	"math"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// ReliabilityBin is one non-empty forecast-probability bin.
type ReliabilityBin struct {
	Probability       float64 // bin centre
	ObservedFrequency float64
	Count             int
}

// ReliabilityDiagram bins the forecast probabilities c/N into bins of width
// binWidth centred on its multiples, with the last bin closed at 1. Each bin
// reports the observed relative frequency (reliability) and the number of
// forecasts that fell in it (sharpness). Empty bins are omitted.
func ReliabilityDiagram(s domain.VerificationSample, numMembers int, binWidth float64) ([]ReliabilityBin, error) {
	if numMembers <= 0 {
		return nil, fmt.Errorf("number of members must be positive, got %d", numMembers)
	}
	if binWidth <= 0 || binWidth > 1 {
		return nil, fmt.Errorf("bin width %v outside (0,1]", binWidth)
	}
	h, err := newHistogram(s, numMembers)
	if err != nil {
		return nil, err
	}

	nbins := int(math.Round(1/binWidth)) + 1
	issued := make([]int, nbins)
	observed := make([]int, nbins)
	for c := range h.issued {
		p := float64(c) / float64(numMembers)
		b := int(math.Floor(p/binWidth + 0.5))
		if b >= nbins {
			b = nbins - 1
		}
		issued[b] += h.issued[c]
		observed[b] += h.observed[c]
	}

	var bins []ReliabilityBin
	for b := range issued {
		if issued[b] == 0 {
			continue
		}
		bins = append(bins, ReliabilityBin{
			Probability:       float64(b) * binWidth,
			ObservedFrequency: float64(observed[b]) / float64(issued[b]),
			Count:             issued[b],
		})
	}
	return bins, nil
}
