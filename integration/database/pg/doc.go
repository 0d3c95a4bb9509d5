// Package pg manages the PostgreSQL connection pool: connecting with retries,
// applying goose migrations from an fs.FS, health checks and classification of
// the PostgreSQL errors the stores care about.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations(), log); err != nil {
//		return err
//	}
package pg
