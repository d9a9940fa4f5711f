// Package backoff provides retry delay strategies for reconnect loops.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the delay before a given retry attempt.
type Strategy interface {
	// NextDelay returns the delay before attempt n (1-based). Attempt 0 or
	// negative returns zero.
	NextDelay(attempt int) time.Duration
	// MaxAttempts returns the attempt limit; 0 means unlimited.
	MaxAttempts() int
}

// Exponential doubles the delay per attempt up to a cap:
// delay = min(initial * 2^(attempt-1), max).
type Exponential struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	factor       float64
	jitter       float64
	maxAttempts  int
	randomSource *rand.Rand
}

// NewExponential creates an exponential backoff strategy with no jitter.
func NewExponential(initialDelay, maxDelay time.Duration, maxAttempts int) *Exponential {
	return &Exponential{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		factor:       2.0,
		maxAttempts:  maxAttempts,
		randomSource: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithJitter randomizes each delay by up to +/- jitter/2 of its value.
func (b *Exponential) WithJitter(jitter float64) *Exponential {
	b.jitter = jitter
	return b
}

// WithFactor sets the growth factor (default 2.0).
func (b *Exponential) WithFactor(factor float64) *Exponential {
	b.factor = factor
	return b
}

// NextDelay implements Strategy.
func (b *Exponential) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(b.initialDelay) * math.Pow(b.factor, float64(attempt-1))
	if b.jitter > 0 {
		jitterRange := delay * b.jitter
		delay += (b.randomSource.Float64() - 0.5) * jitterRange
	}
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}
	return time.Duration(delay)
}

// MaxAttempts implements Strategy.
func (b *Exponential) MaxAttempts() int { return b.maxAttempts }

// Constant waits a fixed delay between attempts.
type Constant struct {
	delay       time.Duration
	maxAttempts int
}

// NewConstant creates a constant backoff strategy.
func NewConstant(delay time.Duration, maxAttempts int) *Constant {
	return &Constant{delay: delay, maxAttempts: maxAttempts}
}

// NextDelay implements Strategy.
func (b *Constant) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.delay
}

// MaxAttempts implements Strategy.
func (b *Constant) MaxAttempts() int { return b.maxAttempts }
