package binlog

import (
	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

// SDCDeletedAt is the synthetic column recording when a row was deleted.
const SDCDeletedAt = "_sdc_deleted_at"

// StreamBinding binds a tracked stream to its current schema and desired
// column set. Drift resolution replaces a binding wholesale, never patches
// it in place.
type StreamBinding struct {
	Entry          *catalog.Entry
	DesiredColumns map[string]struct{}
}

// AddAutomaticProperties appends the synthetic deletion-timestamp property
// to the entry's schema and to desired.
func AddAutomaticProperties(entry *catalog.Entry, desired map[string]struct{}) map[string]struct{} {
	entry.Schema.Properties[SDCDeletedAt] = &singer.Schema{
		Type:   singer.TypeList{"null", "string"},
		Format: "date-time",
	}
	desired[SDCDeletedAt] = struct{}{}
	return desired
}

// NewStreamBindings builds the tracked-stream table from catalog entries.
func NewStreamBindings(entries []*catalog.Entry) map[string]*StreamBinding {
	ret := make(map[string]*StreamBinding, len(entries))
	for _, entry := range entries {
		desired := make(map[string]struct{}, len(entry.Schema.Properties))
		for name := range entry.Schema.Properties {
			desired[name] = struct{}{}
		}
		ret[entry.TapStreamId] = &StreamBinding{
			Entry:          entry,
			DesiredColumns: AddAutomaticProperties(entry, desired),
		}
	}
	return ret
}
