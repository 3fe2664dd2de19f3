package verify

import (
	"fmt"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// BrierReliability is the reliability component of the Brier score in the
// form of Ferro and Fricker (2012), "A bias-corrected decomposition of the
// Brier score", QJRMS 138(668):
//
//	BSrel = sum_c (N_c/n) * (c/N - O_c/N_c)^2
//
// over member counts c with N_c > 0.
func BrierReliability(s domain.VerificationSample, numMembers int) (float64, error) {
	if numMembers <= 0 {
		return 0, fmt.Errorf("number of members must be positive, got %d", numMembers)
	}
	if s.Len() == 0 {
		return 0, domain.ErrEmptySample
	}
	h, err := newHistogram(s, numMembers)
	if err != nil {
		return 0, err
	}
	return h.reliability(numMembers), nil
}

func (h histogram) reliability(numMembers int) float64 {
	n := float64(h.n)
	var bsrel float64
	for c, nc := range h.issued {
		if nc == 0 {
			continue
		}
		p := float64(c) / float64(numMembers)
		d := p - float64(h.observed[c])/float64(nc)
		bsrel += float64(nc) / n * d * d
	}
	return bsrel
}
