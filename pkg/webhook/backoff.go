package webhook

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy calculates retry delays. Implementations must be safe
// for concurrent use. Attempt numbering starts at 1 for the first retry.
type BackoffStrategy interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles (by default) the delay on every attempt and
// adds optional jitter so that simultaneous failures do not retry in
// lockstep.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval returns min(initial * multiplier^(attempt-1), max),
// scaled by a random factor in [1-jitter, 1+jitter].
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}
	maxIv := e.MaxInterval
	if maxIv == 0 {
		maxIv = time.Minute
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}
	if interval > float64(maxIv) {
		interval = float64(maxIv)
	}
	return time.Duration(interval)
}

// FixedBackoff retries at a constant interval.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy is the delivery retry policy: 1s base, doubling,
// capped at one minute, with 10% jitter.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}
