// Package pg manages the PostgreSQL connection pool and schema migrations.
//
// Connect builds a pgx pool from env-driven configuration with retrying
// startup; Migrate applies goose SQL migrations through the same pool. The
// Is*Error helpers classify pgx and SQLSTATE errors so storage layers can
// translate them into domain errors without importing pgconn everywhere.
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
