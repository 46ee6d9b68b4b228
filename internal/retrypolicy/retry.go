// Package retrypolicy implements exponential backoff with jitter and
// temperature escalation for operations against transient-failure-prone
// collaborators (LLM calls, tool executions).
package retrypolicy

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"time"
)

// retryablePatterns are the substrings/regexes that classify an error
// message as retryable.
var retryablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rate limit`),
	regexp.MustCompile(`(?i)timeout`),
	regexp.MustCompile(`(?i)connection reset`),
	regexp.MustCompile(`(?i)socket hang up`),
	regexp.MustCompile(`(?i)http 429`),
	regexp.MustCompile(`(?i)http 503`),
	regexp.MustCompile(`(?i)network`),
	regexp.MustCompile(`(?i)service unavailable`),
}

// IsRetryable classifies an error as retryable by message pattern. A nil
// error is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range retryablePatterns {
		if pattern.MatchString(msg) {
			return true
		}
	}
	return false
}

// ErrAborted is returned when the cancellation signal trips between attempts.
var ErrAborted = errors.New("Operation aborted")

// Config configures a Policy. Zero-value fields are not filled automatically;
// use DefaultConfig for the default profile (3/1000/2/30000/0/0/0).
type Config struct {
	MaxRetries           int
	InitialDelayMs       int
	BackoffMultiplier    float64
	MaxDelayMs           int
	JitterFactor         float64 // in [0,1]
	TemperatureIncrement float64
	MaxTemperature       float64
}

// DefaultConfig returns the default retry profile.
func DefaultConfig() Config {
	return Config{
		MaxRetries:           3,
		InitialDelayMs:       1000,
		BackoffMultiplier:    2,
		MaxDelayMs:           30000,
		JitterFactor:         0,
		TemperatureIncrement: 0,
		MaxTemperature:       0,
	}
}

// Attempt carries the per-attempt parameters passed into an operation.
type Attempt struct {
	Attempt     int // 1-indexed
	Temperature float64
}

// RetryRecord describes one attempt's outcome, for the returned retry history.
type RetryRecord struct {
	Attempt int
	Err     error
	Delay   time.Duration
}

// Result is what Execute returns.
type Result struct {
	Success      bool
	Value        any
	TotalAttempts int
	RetryHistory []RetryRecord
	Err          error
}

// Op is the operation Execute drives, receiving the current attempt number
// and temperature hint.
type Op func(ctx context.Context, a Attempt) (any, error)

// ExecuteOptions configures one Execute call.
type ExecuteOptions struct {
	BaseTemperature float64
	OnRetry         func(a Attempt, err error, nextDelay time.Duration)
}

// Policy executes an operation with exponential backoff, jitter, temperature
// escalation, and retryable-error classification.
type Policy struct {
	cfg Config

	sleep func(context.Context, time.Duration) error
}

// New creates a Policy with the given configuration.
func New(cfg Config) *Policy {
	return &Policy{
		cfg:   cfg,
		sleep: realSleep,
	}
}

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithClock overrides the sleep function, for deterministic tests.
func (p *Policy) WithClock(sleep func(context.Context, time.Duration) error) *Policy {
	clone := *p
	if sleep != nil {
		clone.sleep = sleep
	}
	return &clone
}

// Execute runs op, retrying on retryable errors per the configured policy.
// Cancellation of ctx between attempts aborts without further attempts.
func (p *Policy) Execute(ctx context.Context, op Op, opts ExecuteOptions) Result {
	var history []RetryRecord
	temperature := opts.BaseTemperature

	maxAttempts := p.cfg.MaxRetries + 1
	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		if err := ctx.Err(); err != nil {
			return Result{Success: false, Err: ErrAborted, TotalAttempts: attemptNum - 1, RetryHistory: history}
		}

		value, err := op(ctx, Attempt{Attempt: attemptNum, Temperature: temperature})
		if err == nil {
			return Result{Success: true, Value: value, TotalAttempts: attemptNum, RetryHistory: history}
		}

		if !IsRetryable(err) || attemptNum == maxAttempts {
			history = append(history, RetryRecord{Attempt: attemptNum, Err: err})
			return Result{Success: false, Err: err, TotalAttempts: attemptNum, RetryHistory: history}
		}

		delay := p.delayFor(attemptNum)
		history = append(history, RetryRecord{Attempt: attemptNum, Err: err, Delay: delay})

		if opts.OnRetry != nil {
			opts.OnRetry(Attempt{Attempt: attemptNum, Temperature: temperature}, err, delay)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return Result{Success: false, Err: ErrAborted, TotalAttempts: attemptNum, RetryHistory: history}
		}

		temperature = p.nextTemperature(temperature)
	}

	// Unreachable: the loop always returns by the final iteration.
	return Result{Success: false, Err: errors.New("retrypolicy: exhausted without terminal result"), RetryHistory: history}
}

// delayFor computes the backoff delay before the next attempt, after
// attemptNum has just failed. Delay = min(maxDelay, initial * multiplier^(attempt-1))
// with multiplicative jitter in [1-jitter/2, 1+jitter/2].
func (p *Policy) delayFor(attemptNum int) time.Duration {
	base := float64(p.cfg.InitialDelayMs)
	for i := 1; i < attemptNum; i++ {
		base *= p.cfg.BackoffMultiplier
	}
	if maxMs := float64(p.cfg.MaxDelayMs); maxMs > 0 && base > maxMs {
		base = maxMs
	}

	if p.cfg.JitterFactor > 0 {
		lo := 1 - p.cfg.JitterFactor/2
		hi := 1 + p.cfg.JitterFactor/2
		factor := lo + rand.Float64()*(hi-lo)
		base *= factor
		if maxMs := float64(p.cfg.MaxDelayMs); maxMs > 0 && base > maxMs {
			base = maxMs
		}
	}

	return time.Duration(base) * time.Millisecond
}

// nextTemperature escalates temperature by TemperatureIncrement, capped at
// MaxTemperature (when MaxTemperature > 0).
func (p *Policy) nextTemperature(current float64) float64 {
	return p.cfg.NextTemperature(current)
}

// NextTemperature escalates current by cfg's TemperatureIncrement, capped at
// MaxTemperature (when MaxTemperature > 0). Exposed standalone so callers
// that need temperature escalation without the backoff/retryable-error
// machinery (e.g. a format-correction retry loop) can reuse the same
// formula.
func (cfg Config) NextTemperature(current float64) float64 {
	next := current + cfg.TemperatureIncrement
	if cfg.MaxTemperature > 0 && next > cfg.MaxTemperature {
		return cfg.MaxTemperature
	}
	return next
}
