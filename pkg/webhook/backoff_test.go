package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mentorhub/pulse/pkg/webhook"
)

func TestExponentialBackoff_NoJitter(t *testing.T) {
	t.Parallel()

	b := webhook.ExponentialBackoff{
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
	}

	assert.Equal(t, time.Duration(0), b.NextInterval(0))
	assert.Equal(t, time.Second, b.NextInterval(1))
	assert.Equal(t, 2*time.Second, b.NextInterval(2))
	assert.Equal(t, 4*time.Second, b.NextInterval(3))
	// Capped at MaxInterval.
	assert.Equal(t, 10*time.Second, b.NextInterval(10))
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	t.Parallel()

	b := webhook.ExponentialBackoff{
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
		JitterFactor:    0.5,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		base := time.Second << (attempt - 1)
		got := b.NextInterval(attempt)
		assert.GreaterOrEqual(t, got, time.Duration(float64(base)*0.5))
		assert.LessOrEqual(t, got, time.Duration(float64(base)*1.5))
	}
}

func TestExponentialBackoff_Defaults(t *testing.T) {
	t.Parallel()

	var b webhook.ExponentialBackoff
	assert.Equal(t, time.Second, b.NextInterval(1))
	assert.Equal(t, 2*time.Second, b.NextInterval(2))
	assert.Equal(t, time.Minute, b.NextInterval(60))
}

func TestFixedBackoff(t *testing.T) {
	t.Parallel()

	b := webhook.FixedBackoff{Interval: 3 * time.Second}
	assert.Equal(t, time.Duration(0), b.NextInterval(0))
	assert.Equal(t, 3*time.Second, b.NextInterval(1))
	assert.Equal(t, 3*time.Second, b.NextInterval(7))
}
