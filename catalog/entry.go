package catalog

import (
	"context"
	"fmt"

	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

// Entry is one table in the catalog: its schema, metadata and identifiers.
type Entry struct {
	Table       string         `json:"table_name"`
	Stream      string         `json:"stream"`
	TapStreamId string         `json:"tap_stream_id"`
	Schema      *singer.Schema `json:"schema"`
	Metadata    Metadata       `json:"metadata"`
}

// Catalog is the discovered/selected set of tables.
type Catalog struct {
	Streams []*Entry `json:"streams"`
}

// TapStreamId derives a stream identifier from database and table name.
func TapStreamId(database, table string) string {
	return fmt.Sprintf("%s-%s", database, table)
}

// DatabaseName returns the database the table belongs to.
func (e *Entry) DatabaseName() string {
	return e.Metadata.Table.DatabaseName
}

// KeyProperties returns the table's key columns.
func (e *Entry) KeyProperties() []string {
	return e.Metadata.Table.KeyProperties
}

// IsSelected reports whether the table is selected for replication.
func (e *Entry) IsSelected() bool {
	return e.Metadata.Table.Selected || e.Metadata.Table.SelectedByDefault
}

// ReplicationMethod returns the configured replication method
// (e.g. "LOG_BASED", "FULL_TABLE").
func (e *Entry) ReplicationMethod() string {
	return e.Metadata.Table.ReplicationMethod
}

// Discoverer refreshes catalog information for a single table, scoped to
// filterDbs when non-empty.
type Discoverer interface {
	DiscoverTable(ctx context.Context, filterDbs []string, table string) (*Entry, error)
}
