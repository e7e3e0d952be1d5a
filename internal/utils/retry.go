package utils

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

var DefaultRetry = Retry{Base: 50 * time.Millisecond, Cap: 2 * time.Second, Tries: 3}

type Retry struct {
	Base  time.Duration // Min amount of time to sleep per iteration
	Cap   time.Duration // Max amount of time to sleep per iteration
	Tries int           // Number of attempts, the first one included
}

// Backoff returns a jittered sleep for attempt i, bounded by Cap.
func (r Retry) Backoff(i int) time.Duration {
	d := r.Base << uint(i)
	if d <= 0 || (r.Cap > 0 && d > r.Cap) {
		d = r.Cap
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d))) + d/2
}

// Sleep waits for the backoff of attempt i or until ctx is done.
func (r Retry) Sleep(ctx context.Context, i int) error {
	d := r.Backoff(i)
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryFunc calls f until it succeeds, shouldRetry rejects its error, the
// tries are spent, or ctx is cancelled. The last error from f is returned.
func RetryFunc(ctx context.Context, f func(ctx context.Context) error, shouldRetry func(error) bool, r Retry) error {
	tries := r.Tries
	if tries < 1 {
		tries = 1
	}

	var err error
	for i := 0; i < tries; i++ {
		err = f(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		if i == tries-1 {
			break
		}
		if serr := r.Sleep(ctx, i); serr != nil {
			return errors.Wrap(err, serr.Error())
		}
	}
	return errors.Wrapf(err, "gave up after %d tries", tries)
}
