package retry

import (
	"context"
	"time"
)

// Policy defines a bounded exponential backoff: attempt k (0-based) is
// followed by a sleep of BaseWait * 2^k before the next try.
type Policy struct {
	MaxAttempts int           // retries after the first attempt
	BaseWait    time.Duration // backoff base
}

// DefaultPolicy matches the historical sampler defaults (3 retries, 1.5s base).
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseWait: 1500 * time.Millisecond}
}

// Do runs fn up to MaxAttempts+1 times, sleeping BaseWait*2^k between
// attempts. The last error is returned if every attempt fails. A cancelled
// context aborts the wait and returns the context error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for k := 0; k <= p.MaxAttempts; k++ {
		if err = fn(); err == nil {
			return nil
		}
		if k == p.MaxAttempts {
			break
		}
		wait := p.BaseWait * (1 << uint(k))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
