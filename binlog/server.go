package binlog

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/siddontang/go-mysql/mysql"

	"github.com/transferwise/pipelinewise-tap-mysql/sqlh"
)

// BinaryLog is one entry of the server's retained log set.
type BinaryLog struct {
	Name string
	Size int64
}

// Server exposes the replication-admin queries the engine needs. Each call
// is a short-lived scoped query; connection retry policy lives behind the
// implementation.
type Server interface {
	// BinlogFormat returns @@binlog_format.
	BinlogFormat(ctx context.Context) (string, error)

	// BinlogRowImage returns @@binlog_row_image.
	BinlogRowImage(ctx context.Context) (string, error)

	// BinaryLogs returns the currently retained binary logs.
	BinaryLogs(ctx context.Context) ([]BinaryLog, error)

	// MasterStatus returns the server's current write position.
	MasterStatus(ctx context.Context) (mysql.Position, error)

	// ServerId returns @@server_id.
	ServerId(ctx context.Context) (uint32, error)
}

// NewServer wraps a *sql.DB as a Server. Every query runs on a connection
// scoped to the call.
func NewServer(db *sql.DB) Server {
	return &sqlServer{db: db}
}

type sqlServer struct {
	db *sql.DB
}

func (s *sqlServer) BinlogFormat(ctx context.Context) (format string, err error) {
	err = sqlh.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		return errors.WithStack(
			conn.QueryRowContext(ctx, "SELECT @@binlog_format").Scan(&format))
	})
	return
}

func (s *sqlServer) BinlogRowImage(ctx context.Context) (image string, err error) {
	err = sqlh.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, "SELECT @@binlog_row_image").Scan(&image)
		if err != nil {
			return errors.WithMessage(err,
				"binlog_row_image system variable does not exist, MySQL version must be at least 5.6.2 to use binlog replication")
		}
		return nil
	})
	return
}

func (s *sqlServer) BinaryLogs(ctx context.Context) (logs []BinaryLog, err error) {
	err = sqlh.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SHOW BINARY LOGS")
		if err != nil {
			return errors.WithStack(err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return errors.WithStack(err)
		}
		for rows.Next() {
			// 8.0.14 adds an Encrypted column, scan the extras away.
			var (
				log    BinaryLog
				extras = make([]interface{}, len(cols))
			)
			extras[0] = &log.Name
			extras[1] = &log.Size
			for i := 2; i < len(cols); i++ {
				extras[i] = new(sql.RawBytes)
			}
			if err := rows.Scan(extras...); err != nil {
				return errors.WithStack(err)
			}
			logs = append(logs, log)
		}
		return errors.WithStack(rows.Err())
	})
	return
}

func (s *sqlServer) MasterStatus(ctx context.Context) (pos mysql.Position, err error) {
	err = sqlh.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SHOW MASTER STATUS")
		if err != nil {
			return errors.WithStack(err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return errors.WithStack(err)
			}
			return configErrorf("binary logging is not enabled")
		}

		cols, err := rows.Columns()
		if err != nil {
			return errors.WithStack(err)
		}
		dest := make([]interface{}, len(cols))
		dest[0] = &pos.Name
		dest[1] = &pos.Pos
		for i := 2; i < len(cols); i++ {
			dest[i] = new(sql.RawBytes)
		}
		return errors.WithStack(rows.Scan(dest...))
	})
	return
}

func (s *sqlServer) ServerId(ctx context.Context) (serverId uint32, err error) {
	err = sqlh.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		return errors.WithStack(
			conn.QueryRowContext(ctx, "SELECT @@server_id").Scan(&serverId))
	})
	return
}
