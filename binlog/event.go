package binlog

import (
	"context"
	"time"

	"github.com/siddontang/go-mysql/mysql"
)

// EventKind is the closed set of event variants the loop dispatches on.
type EventKind int

const (
	EventOther EventKind = iota
	EventInsert
	EventUpdate
	EventDelete
	EventRotate
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "INSERT"
	case EventUpdate:
		return "UPDATE"
	case EventDelete:
		return "DELETE"
	case EventRotate:
		return "ROTATE"
	default:
		return "OTHER"
	}
}

// Column is a column as declared by the event stream: name plus the source
// type byte (MYSQL_TYPE_*).
type Column struct {
	Name string
	Type byte
}

// RowData holds one affected row. Inserts carry After only, deletes Before
// only, updates both.
type RowData struct {
	Before map[string]interface{}
	After  map[string]interface{}
}

// RowChangeEvent is one normalized replication log event.
type RowChangeEvent struct {
	Kind EventKind

	// Schema and Table name the source table (row events only).
	Schema string
	Table  string

	// Columns are the event's declared columns (row events only).
	Columns []Column

	// Rows are the affected rows (row events only).
	Rows []RowData

	// Timestamp is the event's own embedded time. Deletion records derive
	// their deletion timestamp from it.
	Timestamp time.Time

	// NextLog is the position the log switches to (rotate events only).
	NextLog mysql.Position
}

// ColumnTypes maps declared column names to their source types.
func (e *RowChangeEvent) ColumnTypes() map[string]byte {
	ret := make(map[string]byte, len(e.Columns))
	for _, c := range e.Columns {
		ret[c.Name] = c.Type
	}
	return ret
}

// EventSource yields replication log events in strict log order. Every
// advance also reports the source's current (file, offset) so the loop never
// has to read the position as a side effect. Next returns io.EOF when the
// source is exhausted.
type EventSource interface {
	Next(ctx context.Context) (*RowChangeEvent, mysql.Position, error)
	Close() error
}

// SourceFactory opens an event source at the given resume position,
// registering with the given replica server id.
type SourceFactory func(pos mysql.Position, serverId uint32) (EventSource, error)
