package crawler

import (
	"context"
	"math/rand/v2"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
)

// State is a step of the retry state machine.
type State int

// Retry states.
const (
	StateAttempting State = iota
	StateBackoff
	StateSucceeded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// Next is the transition function of the retry state machine. attempt is
// the 1-based number of the attempt that produced res.
func Next(state State, res models.FetchResult, attempt, maxAttempts int) State {
	switch state {
	case StateAttempting:
		switch {
		case res.OK():
			return StateSucceeded
		case !res.Transient():
			return StateFailed
		case attempt < maxAttempts:
			return StateBackoff
		default:
			return StateFailed
		}
	case StateBackoff:
		return StateAttempting
	}

	return state
}

// BackoffWindow returns the delay range to wait after res.
func BackoffWindow(policy config.RetryPolicy, res models.FetchResult) (time.Duration, time.Duration) {
	if res.RateLimited {
		return policy.RateLimitWindow()
	}

	return policy.NetworkWindow()
}

// Sleeper blocks for d. The default is time.Sleep.
type Sleeper func(d time.Duration)

// Jitter picks a duration in [lo, hi).
type Jitter func(lo, hi time.Duration) time.Duration

// UniformJitter draws uniformly from [lo, hi). It returns lo when the range is empty.
func UniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}

	return lo + rand.N(hi-lo)
}

// Retrier wraps a Fetcher with bounded, randomized retries.
type Retrier struct {
	fetcher Fetcher
	sleep   Sleeper
	jitter  Jitter
	logger  *logger.Logger
	policy  config.RetryPolicy
}

// RetrierOption customises a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces time.Sleep.
func WithSleeper(s Sleeper) RetrierOption {
	return func(r *Retrier) {
		r.sleep = s
	}
}

// WithJitter replaces UniformJitter.
func WithJitter(j Jitter) RetrierOption {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// NewRetrier creates a retry controller around fetcher.
func NewRetrier(fetcher Fetcher, policy config.RetryPolicy, log *logger.Logger, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		fetcher: fetcher,
		policy:  policy,
		sleep:   time.Sleep,
		jitter:  UniformJitter,
		logger:  log,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FetchWithRetry fetches ref until it succeeds, fails permanently or runs
// out of attempts, and returns the last result. Backoff sleeps always run
// to completion.
func (r *Retrier) FetchWithRetry(ctx context.Context, ref models.ItemReference) models.FetchResult {
	maxAttempts := r.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		res     models.FetchResult
		attempt int
	)

	state := StateAttempting

	for {
		switch state {
		case StateAttempting:
			attempt++
			res = r.fetcher.Fetch(ctx, ref)
			res.Attempts = attempt
		case StateBackoff:
			lo, hi := BackoffWindow(r.policy, res)
			delay := r.jitter(lo, hi)

			r.logger.Warn("fetch failed, backing off",
				"ref", string(ref),
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"rate_limited", res.RateLimited,
				"delay", delay,
				"error", res.Err,
			)
			r.sleep(delay)
		case StateSucceeded, StateFailed:
			return res
		}

		state = Next(state, res, attempt, maxAttempts)
	}
}
