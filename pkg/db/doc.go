// Package db connects to PostgreSQL through a pgx pool and applies goose
// migrations. It backs the Postgres session store.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, pool, session.Migrations, "migrations", cfg.MigrationsTable, log); err != nil {
//	    return err
//	}
package db
