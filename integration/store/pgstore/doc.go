// Package pgstore implements the session registry, trusted-device and passkey
// stores on PostgreSQL. Migrations returns the goose migrations that create the
// tables; apply them with pg.Migrate.
//
// Every method is a single statement; races such as concurrent device inserts
// surface as session.ErrConflict for the registry to resolve.
package pgstore
