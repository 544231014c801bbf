package queue

import "time"

// Config holds the delivery queue configuration.
type Config struct {
	PollInterval     time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	AdapterTimeout   time.Duration `env:"QUEUE_ADAPTER_TIMEOUT" envDefault:"5s"`
	LockTimeout      time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"1m"`
	ShutdownTimeout  time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrent    int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"10"`
	MaxRetries       int8          `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	ScheduleInterval time.Duration `env:"QUEUE_SCHEDULE_INTERVAL" envDefault:"1m"`
}
