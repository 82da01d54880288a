package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
)

// DefaultMaxRetries is used when Options.MaxRetries is zero.
const DefaultMaxRetries = 3

// retrier retries an operation with exponential backoff, but only when the
// API reports a rate limit. Every other error fails immediately.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        zerolog.Logger
}

func newRetrier(maxRetries int, log zerolog.Logger) retrier {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return retrier{
		maxRetries: maxRetries,
		baseDelay:  2 * time.Second,
		maxDelay:   32 * time.Second,
		log:        log,
	}
}

// do returns the number of retries performed and the final error.
func (r retrier) do(ctx context.Context, operation func() error) (int, error) {
	retries := 0
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return retries, nil
		}
		if !isRateLimitError(err) {
			return retries, err
		}
		if attempt == r.maxRetries-1 {
			return retries, fmt.Errorf("max retries (%d) exceeded: %w", r.maxRetries, err)
		}

		delay := r.delay(attempt, err)
		r.log.Debug().Err(err).Dur("delay", delay).Int("attempt", attempt+1).Msg("rate limited, backing off")

		retries++
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retries, ctx.Err()
		case <-timer.C:
		}
	}
	return retries, errors.New("unexpected: exhausted retries without error")
}

func (r retrier) delay(attempt int, err error) time.Duration {
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.RetryAfter != nil && *abuse.RetryAfter > 0 {
		if *abuse.RetryAfter < r.maxDelay {
			return *abuse.RetryAfter
		}
		return r.maxDelay
	}

	d := r.baseDelay * (1 << uint(attempt))
	if d > r.maxDelay {
		d = r.maxDelay
	}
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int63n(half))
	}
	return d
}

// isRateLimitError reports whether err is a primary or secondary rate limit.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &abuseErr)
}
