// Command validate checks the integrity of the arrays written by the count
// and verify stages for the configured axes: every count array decodes and
// satisfies the record invariants, counts never increase with the threshold,
// and summary tables have a consistent shape and plausible values.
//
// Usage:
//
//	go run ./cmd/validate -start 20211201 -end 20211231
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// tally counts what a phase looked at.
type tally struct {
	present, missing int
}

func main() {
	var ov config.Overrides
	ov.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = ov.Apply(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	store := arraystore.New(cfg.Path(cfg.CountsDir), cfg.Path(cfg.SummaryDir))

	fmt.Println("=== Rainfall Verification Array Validation ===")
	fmt.Println()

	counts, ct := validateCounts(cfg, store)
	monotone := validateMonotonicity(cfg, store)
	summaries, st := validateSummaries(cfg, store)
	phases := []*phase{counts, monotone, summaries}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Count arrays: %d present, %d missing\n", ct.present, ct.missing)
	fmt.Printf("Summary tables: %d present, %d missing\n", st.present, st.missing)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Count arrays ──

func validateCounts(cfg *config.Config, store *arraystore.Store) (*phase, tally) {
	p := &phase{name: "Count array integrity"}
	var t tally
	for _, sys := range cfg.Systems {
		for _, thr := range cfg.Thresholds {
			for _, base := range cfg.BaseTimes() {
				for _, step := range cfg.LeadTimes() {
					k := domain.CountKey{Accumulation: cfg.Accumulation, System: sys.Name, Threshold: thr, BaseTime: base, Step: step}
					rec, err := store.LoadCounts(k)
					switch {
					case errors.Is(err, domain.ErrMissingInput):
						t.missing++
						continue
					case err != nil:
						p.errorf("%s: %v", k, err)
						continue
					}
					t.present++
					if err := rec.Validate(sys.Members); err != nil {
						p.errorf("%s: %v", k, err)
					}
				}
			}
		}
	}
	return p, t
}

// validateMonotonicity checks that, for one base time and step, raising the
// threshold never raises a member count or an observation flag.
func validateMonotonicity(cfg *config.Config, store *arraystore.Store) *phase {
	p := &phase{name: "Threshold monotonicity"}
	thresholds := slices.Clone(cfg.Thresholds)
	slices.Sort(thresholds)
	for _, sys := range cfg.Systems {
		for _, base := range cfg.BaseTimes() {
			for _, step := range cfg.LeadTimes() {
				var prev *domain.ExceedanceRecord
				var prevThr float64
				for _, thr := range thresholds {
					k := domain.CountKey{Accumulation: cfg.Accumulation, System: sys.Name, Threshold: thr, BaseTime: base, Step: step}
					rec, err := store.LoadCounts(k)
					if err != nil {
						prev = nil
						continue
					}
					if prev != nil {
						checkMonotone(p, k, prevThr, *prev, rec)
					}
					prev, prevThr = &rec, thr
				}
			}
		}
	}
	return p
}

func checkMonotone(p *phase, k domain.CountKey, lowerThr float64, lower, higher domain.ExceedanceRecord) {
	if lower.Len() != higher.Len() {
		p.errorf("%s: %d locations vs %d at threshold %s", k, higher.Len(), lower.Len(), domain.FormatThreshold(lowerThr))
		return
	}
	for i := range higher.MemberCount {
		if higher.MemberCount[i] > lower.MemberCount[i] || higher.ObsFlag[i] > lower.ObsFlag[i] {
			p.errorf("%s: location %d exceeds more often than at threshold %s", k, i, domain.FormatThreshold(lowerThr))
			return
		}
	}
}

// ── Summary tables ──

func validateSummaries(cfg *config.Config, store *arraystore.Store) (*phase, tally) {
	p := &phase{name: "Summary table shape and range"}
	var t tally
	for _, sys := range cfg.Systems {
		for _, thr := range cfg.Thresholds {
			reps := -1
			for _, stat := range domain.Statistics {
				k := domain.SummaryKey{Accumulation: cfg.Accumulation, System: sys.Name, Threshold: thr, Statistic: stat}
				tbl, err := store.LoadSummary(k)
				switch {
				case errors.Is(err, domain.ErrMissingInput):
					t.missing++
					continue
				case err != nil:
					p.errorf("%s: %v", k, err)
					continue
				}
				t.present++
				if !slices.Equal(tbl.LeadTimes, cfg.LeadTimes()) {
					p.errorf("%s: lead times %v do not match the configured axis", k, tbl.LeadTimes)
				}
				if reps >= 0 && tbl.Repetitions() != reps {
					p.errorf("%s: %d repetitions, other statistics have %d", k, tbl.Repetitions(), reps)
				}
				reps = tbl.Repetitions()
				checkRange(p, k, tbl)
			}
		}
	}
	return p, t
}

func checkRange(p *phase, k domain.SummaryKey, tbl domain.SummaryTable) {
	for i, row := range tbl.Rows {
		for j, v := range row[1:] {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 1 {
				p.errorf("%s: lead time %d column %d value %v outside [0,1]", k, tbl.LeadTimes[i], j+1, v)
				return
			}
		}
	}
}
