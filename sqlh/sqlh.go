package sqlh

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Queryer abstracts sql.DB/sql.Conn/sql.Tx .
type Queryer interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Conn)(nil)
	_ Queryer = (*sql.Tx)(nil)
)

// WithConn acquires a single connection from db, runs fn with it and releases
// the connection on all paths. Admin/discovery queries are short-lived and
// should not pin connections beyond fn.
func WithConn(ctx context.Context, db *sql.DB, fn func(context.Context, *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer conn.Close()
	return fn(ctx, conn)
}
