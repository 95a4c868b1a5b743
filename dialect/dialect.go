package dialect

import (
	"context"
	"strconv"
	"strings"
)

// Dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a statement. v is nil or a *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query. v must be a *sql.Rows wrapper.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for SQL
// backed stores.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Valid reports whether name is a supported dialect.
func Valid(name string) bool {
	switch name {
	case Postgres, MySQL, SQLite:
		return true
	default:
		return false
	}
}

// Rebind rewrites the '?' placeholders of query into the form used by the
// dialect. Placeholders inside single quoted literals are left alone.
func Rebind(name, query string) string {
	if name != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b       strings.Builder
		n       int
		literal bool
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			literal = !literal
			b.WriteByte(c)
		case c == '?' && !literal:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Quote quotes an identifier for the dialect.
func Quote(name, ident string) string {
	if name == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
