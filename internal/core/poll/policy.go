// Package poll waits for remote state to converge under a bounded retry
// policy.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

var errNotReached = errors.New("condition not reached")

// Condition reports whether the awaited state has been reached. attempt
// starts at 1.
type Condition func(ctx context.Context, attempt int) (bool, error)

// Policy bounds a polling loop.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Exponential bool
	MaxDelay    time.Duration
}

// UploadProcessing is the wait applied right after a file upload.
var UploadProcessing = Policy{MaxAttempts: 10, Delay: 2 * time.Second}

// Recheck is the shorter second wait before a job is created.
var Recheck = Policy{MaxAttempts: 5, Delay: 3 * time.Second}

// Until calls cond until it reports true or the attempts run out. Errors from
// cond count as failed attempts. The only error returned is the context's.
func (p Policy) Until(ctx context.Context, cond Condition) (bool, error) {
	if p.MaxAttempts <= 0 {
		return false, nil
	}

	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		ok, err := cond(ctx, attempt)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !ok {
			return retry.RetryableError(errNotReached)
		}
		return nil
	})
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return false, nil
}

func (p Policy) backoff() retry.Backoff {
	var b retry.Backoff
	switch {
	case p.Delay <= 0:
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	case p.Exponential:
		b = retry.NewExponential(p.Delay)
		if p.MaxDelay > 0 {
			b = retry.WithCappedDuration(p.MaxDelay, b)
		}
	default:
		b = retry.NewConstant(p.Delay)
	}
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}
