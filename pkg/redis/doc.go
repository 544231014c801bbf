// Package redis connects the application to a Redis server.
//
// Connect retries the initial connection so that a service starting
// alongside its Redis container does not crash-loop, and Healthcheck
// plugs the client into HTTP readiness probes.
//
// Configuration comes from the Config struct whose fields are populated
// from environment variables via github.com/caarlos0/env:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// The sentinel errors wrap the driver errors with errors.Join so callers
// can match them with errors.Is.
package redis
