package events

import "time"

// Config holds the gateway and retry sweep configuration.
type Config struct {
	// Secret is the shared HMAC secret for payload verification.
	Secret string `env:"BILLING_WEBHOOK_SECRET,required"`
	// MaxPayloadBytes is the payload size ceiling; larger bodies are rejected.
	MaxPayloadBytes int64 `env:"BILLING_MAX_PAYLOAD_BYTES" envDefault:"1048576"`
	// SignatureMaxAge bounds the accepted signature timestamp window.
	SignatureMaxAge time.Duration `env:"BILLING_SIGNATURE_MAX_AGE" envDefault:"5m"`
	// MaxRetries is the handler retry ceiling before dead-lettering.
	MaxRetries int8 `env:"BILLING_EVENT_MAX_RETRIES" envDefault:"3"`
	// SweepInterval is the period of the failed-event retry sweep.
	SweepInterval time.Duration `env:"BILLING_EVENT_SWEEP_INTERVAL" envDefault:"2m"`
}
