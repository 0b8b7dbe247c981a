package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type Job func(ctx context.Context) error

// Runner invokes a job on a fixed interval with an explicit non-overlap
// guard: if the previous run is still going when the ticker fires (the
// external calls inside a cycle can stall), the tick is skipped and
// counted instead of piling up. Job errors are logged, never propagated;
// the next tick retries from scratch.
type Runner struct {
	interval time.Duration
	busy     atomic.Bool
	skipped  atomic.Uint64

	// OnSkip, if set, is called once per skipped tick.
	OnSkip func()
}

func NewRunner(interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Runner{interval: interval}
}

func (r *Runner) SkippedTicks() uint64 { return r.skipped.Load() }

// Run blocks until ctx is done, firing job immediately and then once
// per interval. It waits for an in-flight run before returning.
func (r *Runner) Run(ctx context.Context, job Job) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	var wg sync.WaitGroup
	r.tick(ctx, job, &wg)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-t.C:
			r.tick(ctx, job, &wg)
		}
	}
}

func (r *Runner) tick(ctx context.Context, job Job, wg *sync.WaitGroup) {
	if !r.busy.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		if r.OnSkip != nil {
			r.OnSkip()
		}
		log.Warn().Uint64("skipped_total", r.skipped.Load()).Msg("previous cycle still running, tick skipped")
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer r.busy.Store(false)
		if err := job(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("cycle failed")
		}
	}()
}
