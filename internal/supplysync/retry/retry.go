package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Options bounds a startup retry loop. This package is only for
// connection bootstrap (database ping, schema, Kafka); supply mutations
// and auto-verify are single-shot by contract and must not go through
// here.
type Options struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
}

func Do(ctx context.Context, name string, o Options, fn func(context.Context) error) error {
	if o.Attempts <= 0 {
		o.Attempts = 5
	}
	if o.Base <= 0 {
		o.Base = 200 * time.Millisecond
	}
	if o.Cap <= 0 {
		o.Cap = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= o.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == o.Attempts {
			break
		}

		wait := o.Base << (attempt - 1)
		if wait > o.Cap {
			wait = o.Cap
		}
		wait += time.Duration(rand.Int63n(int64(o.Base)))

		log.Warn().Err(lastErr).Str("op", name).Int("attempt", attempt).Dur("wait", wait).Msg("retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
