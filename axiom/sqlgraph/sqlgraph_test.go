package sqlgraph

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/axiom/axiomtest"
	"github.com/syssam/onto2schema/dialect"
	dsql "github.com/syssam/onto2schema/dialect/sql"
)

func openSQLite(t *testing.T) axiom.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to ":memory:" is a distinct database.
	db.SetMaxOpenConns(1)
	s, err := Open(context.Background(), dsql.OpenDB(dialect.SQLite, db))
	require.NoError(t, err)
	return s
}

func TestSQLiteStore(t *testing.T) {
	axiomtest.Run(t, openSQLite)
}

func TestOpenUnsupportedDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = Open(context.Background(), dsql.OpenDB("oracle", db))
	require.Error(t, err)
	assert.True(t, onto2schema.IsConfigError(err))
}

func TestMigrateStatements(t *testing.T) {
	for _, d := range []string{dialect.SQLite, dialect.Postgres, dialect.MySQL} {
		t.Run(d, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			stmts := schemaStatements(d)
			for range stmts {
				mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
			}
			_, err = Open(context.Background(), dsql.OpenDB(d, db))
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS axiom_nodes").WillReturnError(errors.New("permission denied"))
	_, err = Open(context.Background(), dsql.OpenDB(dialect.SQLite, db))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlgraph: migrate")
}

func mockStore(t *testing.T, d string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for range schemaStatements(d) {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	s, err := Open(context.Background(), dsql.OpenDB(d, db))
	require.NoError(t, err)
	return s, mock
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s, mock := mockStore(t, dialect.SQLite)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO axiom_nodes").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	err := s.Update(context.Background(), "load", func(tx axiom.Tx) error {
		_, err := tx.CreateNode(context.Background(), []string{axiom.LabelClass}, nil)
		return err
	})
	require.Error(t, err)
	assert.True(t, onto2schema.IsStoreError(err))
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginError(t *testing.T) {
	s, mock := mockStore(t, dialect.SQLite)
	mock.ExpectBegin().WillReturnError(errors.New("busy"))
	err := s.Update(context.Background(), "load", func(axiom.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"load"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReturning(t *testing.T) {
	s, mock := mockStore(t, dialect.Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO axiom_nodes \(labels, props\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs(`["owl__Class"]`, `{"uri":"urn:t#A"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()
	var id int64
	err := s.Update(context.Background(), "create", func(tx axiom.Tx) error {
		n, err := tx.CreateNode(context.Background(), []string{axiom.LabelClass}, axiom.Props{axiom.KeyURI: "urn:t#A"})
		if err != nil {
			return err
		}
		id = n.ID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose(t *testing.T) {
	s := openSQLite(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	err := s.View(context.Background(), func(axiom.Reader) error { return nil })
	assert.ErrorIs(t, err, onto2schema.ErrStoreClosed)
}
