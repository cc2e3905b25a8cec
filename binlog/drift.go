package binlog

import (
	"context"
	"reflect"
	"regexp"
	"sort"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

// The log refers to columns dropped since the event was written with
// placeholder names; those are never schema drift.
var droppedColumnPattern = regexp.MustCompile(`^__dropped_col_\d+__$`)

// IgnoreSet is the run-scoped set of column names already known to be
// unsupported, so the same drift is not re-detected on every event.
type IgnoreSet map[string]struct{}

func (s IgnoreSet) Add(names map[string]struct{}) {
	for name := range names {
		s[name] = struct{}{}
	}
}

// RediscoveryPolicy decides whether a detected column diff warrants
// rediscovering the table, given the stream's metadata.
type RediscoveryPolicy func(diff map[string]struct{}, md *catalog.Metadata) bool

// DefaultRediscoveryPolicy rediscovers only when the event introduces a
// column the catalog has never seen. Columns known to the metadata but left
// out of the schema were deselected or unsupported on purpose.
func DefaultRediscoveryPolicy(diff map[string]struct{}, md *catalog.Metadata) bool {
	for name := range diff {
		if _, ok := md.Columns[name]; !ok {
			return true
		}
	}
	return false
}

// columnsDiff returns the event's column names missing from the known schema,
// excluding dropped-column placeholders and already-ignored names.
func columnsDiff(ev *RowChangeEvent, schema *singer.Schema, ignored IgnoreSet) map[string]struct{} {
	diff := map[string]struct{}{}
	for _, col := range ev.Columns {
		if droppedColumnPattern.MatchString(col.Name) {
			continue
		}
		if _, ok := ignored[col.Name]; ok {
			continue
		}
		if _, ok := schema.Properties[col.Name]; ok {
			continue
		}
		diff[col.Name] = struct{}{}
	}
	return diff
}

func sortedNames(set map[string]struct{}) []string {
	ret := make([]string, 0, len(set))
	for name := range set {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// resolveSchemaDrift compares the event's declared columns to the bound
// schema. A diff either grows the ignore set (policy says no) or triggers a
// single-table rediscovery that replaces the binding wholesale and announces
// the new schema. It returns the binding to process the event with.
func (s *Syncer) resolveSchemaDrift(ctx context.Context, streamId string, binding *StreamBinding, ev *RowChangeEvent) (*StreamBinding, error) {
	diff := columnsDiff(ev, binding.Entry.Schema, s.ignoredColumns)
	if len(diff) == 0 {
		return binding, nil
	}

	logger := s.logger.With().Str("stream", streamId).Logger()
	logger.Info().
		Strs("diff", sortedNames(diff)).
		Msg("Difference detected between event and schema")

	if !s.shouldRediscover(diff, &binding.Entry.Metadata) {
		logger.Info().Msg("Not running discovery, ignoring all detected columns")
		s.ignoredColumns.Add(diff)
		return binding, nil
	}

	logger.Info().Msg("Running discovery")

	newEntry, err := s.discoverer.DiscoverTable(ctx, s.filterDbs, binding.Entry.Table)
	if err != nil {
		return nil, err
	}

	// Remap the fresh entry's emitted stream name into this run's id scheme.
	newEntry.Stream = streamId
	newEntry.TapStreamId = streamId

	newColumns := catalog.DesiredColumns(newEntry.SelectedProperties(), newEntry.Schema)

	// Drop undesired properties before announcing the schema.
	for name := range newEntry.Schema.Properties {
		if _, ok := newColumns[name]; !ok {
			delete(newEntry.Schema.Properties, name)
		}
	}
	newColumns = AddAutomaticProperties(newEntry, newColumns)

	if reflect.DeepEqual(newEntry.Schema.Properties, binding.Entry.Schema.Properties) {
		return binding, nil
	}

	if err := s.writer.Write(&singer.SchemaMessage{
		Stream:        newEntry.Stream,
		Schema:        newEntry.Schema,
		KeyProperties: newEntry.KeyProperties(),
	}); err != nil {
		return nil, err
	}

	newBinding := &StreamBinding{Entry: newEntry, DesiredColumns: newColumns}
	s.streams[streamId] = newBinding
	return newBinding, nil
}
