// Package sql wraps database/sql with the dialect.Driver interface used by the
// SQL axiom store.
//
// Statements are written once with '?' placeholders:
//
//	drv, err := sql.Open(dialect.SQLite, "file:axioms.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	var res sql.Result
//	err = drv.Exec(ctx, "DELETE FROM axiom_edges WHERE id = ?", []any{id}, &res)
//
// and rebound for Postgres ($1, $2, ...) by the connection. NewStatsDriver
// adds query statistics and slow query logging on top of any Driver.
package sql
