package pgstore

import (
	"embed"
	"errors"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/gatekeeper/core/passkey"
	"github.com/dmitrymomot/gatekeeper/core/session"
	"github.com/dmitrymomot/gatekeeper/core/trust"
	"github.com/dmitrymomot/gatekeeper/integration/database/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema migrations, rooted at the migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

var (
	_ session.Store = (*Store)(nil)
	_ trust.Store   = (*Store)(nil)
	_ passkey.Store = (*Store)(nil)
)

// Store is a PostgreSQL-backed store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// sessionErr maps driver errors onto the registry's error contract.
func sessionErr(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return session.ErrNotFound
	case pg.IsDuplicateKeyError(err):
		return errors.Join(session.ErrConflict, err)
	case pg.IsUndefinedTableError(err):
		return errors.Join(session.ErrSchemaMissing, err)
	default:
		return err
	}
}

func trustErr(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return trust.ErrNotFound
	default:
		return err
	}
}
