// Package dialect names the SQL dialects supported by the axiom store and the
// DDL emitter, and defines the driver interfaces shared by both.
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Statements are always written with '?' placeholders. Rebind converts them
// to the positional form of a dialect ($1, $2, ... for Postgres).
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver implementation with statistics
package dialect
