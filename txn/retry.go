package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds conflict retries.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy allows five attempts with short jittered exponential delays.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BaseDelay:   10 * time.Millisecond,
	MaxDelay:    250 * time.Millisecond,
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Retry calls attempt until it succeeds, fails with an error other than
// ErrConflict, or the policy's attempts are used up. Exhaustion returns an
// error that still matches ErrConflict.
func Retry(ctx context.Context, p Policy, attempt func(ctx context.Context) error) error {
	p = p.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := attempt(ctx); err != nil {
			if errors.Is(err, ErrConflict) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("txn: retry budget of %d attempts exhausted: %w", p.MaxAttempts, err)
	}
	return err
}
