package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Progress is a point-in-time view of a running stage.
type Progress struct {
	Stage     string    `json:"stage"`
	Total     int64     `json:"total"`
	Done      int64     `json:"done"`
	Skipped   int64     `json:"skipped"`
	Written   int64     `json:"written"`
	StartedAt time.Time `json:"started_at"`
}

// tracker holds the counters a stage updates concurrently.
type tracker struct {
	stage   string
	total   atomic.Int64
	done    atomic.Int64
	skipped atomic.Int64
	written atomic.Int64
	started atomic.Int64 // unix nanoseconds
	ready   atomic.Bool
}

func (t *tracker) start(total int) {
	t.total.Store(int64(total))
	t.done.Store(0)
	t.skipped.Store(0)
	t.written.Store(0)
	t.started.Store(domain.Now().UnixNano())
}

// wrote marks one persisted output; the first one makes the stage ready.
func (t *tracker) wrote(n int) {
	t.written.Add(int64(n))
	t.ready.Store(true)
}

func (t *tracker) snapshot() Progress {
	p := Progress{
		Stage:   t.stage,
		Total:   t.total.Load(),
		Done:    t.done.Load(),
		Skipped: t.skipped.Load(),
		Written: t.written.Load(),
	}
	if ns := t.started.Load(); ns != 0 {
		p.StartedAt = time.Unix(0, ns).UTC()
	}
	return p
}

// checkReadiness returns nil once the stage has persisted at least one output.
func (t *tracker) checkReadiness(_ context.Context) error {
	if !t.ready.Load() {
		return errors.New(t.stage + " stage has not written any output yet")
	}
	return nil
}

// sinceSeconds is the elapsed time from start for duration histograms.
func sinceSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
