// Package retry runs primary store writes with a bounded number of attempts
// and exponential backoff between them.
package retry

import (
	"context"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/pkg/logger"
)

type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultPolicy waits roughly 2s and then 4s between the three attempts.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Initial:    2 * time.Second,
		Max:        8 * time.Second,
		Multiplier: 2,
	}
}

func NewPolicy(attempts int, initial time.Duration) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if initial > 0 {
		p.Initial = initial
		p.Max = initial * 4
	}
	return p
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.Aborted, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

// Do calls fn until it succeeds, returns a non-transient error, or the
// policy's attempts are used up. The last error is returned unchanged.
func (p Policy) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	bo := gax.Backoff{
		Initial:    p.Initial,
		Max:        p.Max,
		Multiplier: p.Multiplier,
	}

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		logger.Warn("%s failed (attempt %d/%d): %v", action, attempt, attempts, err)
		if attempt == attempts {
			break
		}
		if sleepErr := gax.Sleep(ctx, bo.Pause()); sleepErr != nil {
			return err
		}
	}

	logger.Error("%s: maximum retries reached", action)
	return err
}
