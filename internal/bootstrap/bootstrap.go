// Package bootstrap estimates sampling uncertainty of verification scores by
// resampling whole days with replacement.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/verify"
)

// Evaluator computes the scores of one flattened sample.
type Evaluator func(domain.VerificationSample) (verify.Scores, error)

// MembersEvaluator evaluates samples of an ensemble with numMembers members.
func MembersEvaluator(numMembers int) Evaluator {
	return func(s domain.VerificationSample) (verify.Scores, error) {
		return verify.Evaluate(s, numMembers)
	}
}

// Resampler draws Repetitions bootstrap samples from a seeded source and
// evaluates them on up to Workers goroutines. Results depend only on the seed
// and the input, never on the worker count.
type Resampler struct {
	Repetitions int
	Seed        uint64
	Workers     int
	Logger      *slog.Logger
}

// Draws returns Repetitions lists of numDays day positions drawn uniformly
// with replacement.
func (r Resampler) Draws(numDays int) [][]int {
	rng := rand.New(rand.NewPCG(r.Seed, r.Seed^0x9e3779b97f4a7c15))
	draws := make([][]int, r.Repetitions)
	for i := range draws {
		d := make([]int, numDays)
		for j := range d {
			d[j] = rng.IntN(numDays)
		}
		draws[i] = d
	}
	return draws
}

// Run returns Repetitions+1 scores: index 0 for the original sample, then one
// per bootstrap draw. The same draw feeds every statistic of a repetition.
//
// With no days every entry is NaN. A draw whose flattened sample is empty is
// NaN for that repetition only.
func (r Resampler) Run(ctx context.Context, days *domain.DaySamples, eval Evaluator) ([]verify.Scores, error) {
	if r.Repetitions < 0 {
		return nil, fmt.Errorf("bootstrap repetitions must be non-negative, got %d", r.Repetitions)
	}
	out := make([]verify.Scores, r.Repetitions+1)
	for i := range out {
		out[i] = verify.NaNScores()
	}
	if days == nil || days.Len() == 0 {
		return out, nil
	}

	draws := r.Draws(days.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := 0; i <= r.Repetitions; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var sample domain.VerificationSample
			if i == 0 {
				sample = days.Flatten()
			} else {
				sample = days.Resample(draws[i-1])
			}
			scores, err := eval(sample)
			switch {
			case err == nil:
				out[i] = scores
			case errors.Is(err, domain.ErrEmptySample):
				r.logger().Debug("empty bootstrap sample", "repetition", i, "days", days.Len())
			default:
				return fmt.Errorf("repetition %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r Resampler) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

func (r Resampler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
