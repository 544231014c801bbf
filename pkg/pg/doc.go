// Package pg bootstraps the PostgreSQL layer: a pgx connection pool
// with startup retries, goose migrations applied from the embedded
// schema, and a pool healthcheck for the readiness endpoint.
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
