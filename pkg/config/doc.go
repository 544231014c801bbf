// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// It wraps github.com/caarlos0/env/v11 for struct parsing and
// github.com/joho/godotenv for .env loading. Each configuration type is
// parsed at most once per process and cached, so every component can call
// Load for its own Config without coordinating with the rest of the app.
//
//	type GatewayConfig struct {
//	    Secret         string        `env:"BILLING_WEBHOOK_SECRET,required"`
//	    MaxPayloadSize int64         `env:"BILLING_MAX_PAYLOAD" envDefault:"1048576"`
//	    SignatureMaxAge time.Duration `env:"BILLING_SIGNATURE_MAX_AGE" envDefault:"5m"`
//	}
//
//	var cfg GatewayConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
package config
