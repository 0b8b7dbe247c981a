package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunner_SkipsTicksWhileBusy(t *testing.T) {
	r := NewRunner(20 * time.Millisecond)

	var runs atomic.Int32
	block := make(chan struct{})
	job := func(ctx context.Context) error {
		runs.Add(1)
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx, job)
		close(done)
	}()

	// let several ticks fire while the first run is stuck
	time.Sleep(110 * time.Millisecond)
	close(block)
	cancel()
	<-done

	assert.Equal(t, int32(1), runs.Load(), "overlapping ticks must not start a second run")
	assert.GreaterOrEqual(t, r.SkippedTicks(), uint64(2))
}

func TestRunner_RunsAgainAfterCompletion(t *testing.T) {
	r := NewRunner(15 * time.Millisecond)

	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx, job)

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
	assert.Equal(t, uint64(0), r.SkippedTicks())
}

func TestRunner_OnSkipHook(t *testing.T) {
	r := NewRunner(10 * time.Millisecond)
	var hooks atomic.Int32
	r.OnSkip = func() { hooks.Add(1) }

	block := make(chan struct{})
	job := func(ctx context.Context) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx, job)
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	close(block)
	cancel()
	<-done

	assert.Equal(t, int32(r.SkippedTicks()), hooks.Load())
}
