package binlog

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/siddontang/go-mysql/mysql"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/config"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
	"github.com/transferwise/pipelinewise-tap-mysql/zlog"
)

// Syncer drives one bounded binlog capture pass: it validates the server,
// computes the resume position, then pulls events one at a time until the
// end position captured at start is reached. It is single-threaded; all
// mutable state (bookmarks, bindings, ignore set) is owned by the loop.
type Syncer struct {
	server Server
	open   SourceFactory
	state  *singer.State
	writer singer.MessageWriter

	streams          map[string]*StreamBinding
	discoverer       catalog.Discoverer
	shouldRediscover RediscoveryPolicy
	filterDbs        []string
	serverId         uint32
	flushInterval    int
	logger           zerolog.Logger

	ignoredColumns IgnoreSet
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer) error

// SyncerOptServerId fixes the replica server id instead of fetching the
// server's own.
func SyncerOptServerId(serverId uint32) SyncerOption {
	return func(s *Syncer) error {
		if serverId == 0 {
			return errors.Errorf("SyncerOptServerId got zero serverId")
		}
		s.serverId = serverId
		return nil
	}
}

// SyncerOptFilterDbs scopes rediscovery to the given databases.
func SyncerOptFilterDbs(dbs []string) SyncerOption {
	return func(s *Syncer) error {
		s.filterDbs = dbs
		return nil
	}
}

// SyncerOptFlushInterval sets how many processed rows or skipped events pass
// between bookmark flushes.
func SyncerOptFlushInterval(n int) SyncerOption {
	return func(s *Syncer) error {
		if n < 1 {
			return errors.Errorf("SyncerOptFlushInterval should be at least 1, but got %d", n)
		}
		s.flushInterval = n
		return nil
	}
}

// SyncerOptDiscoverer sets the catalog rediscovery collaborator used on
// schema drift.
func SyncerOptDiscoverer(d catalog.Discoverer) SyncerOption {
	return func(s *Syncer) error {
		s.discoverer = d
		return nil
	}
}

// SyncerOptRediscoveryPolicy sets the drift policy.
func SyncerOptRediscoveryPolicy(p RediscoveryPolicy) SyncerOption {
	return func(s *Syncer) error {
		if p == nil {
			return errors.Errorf("SyncerOptRediscoveryPolicy got nil policy")
		}
		s.shouldRediscover = p
		return nil
	}
}

// SyncerOptLogger sets the logger.
func SyncerOptLogger(logger *zerolog.Logger) SyncerOption {
	return func(s *Syncer) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		s.logger = logger.With().Str("component", "binlog.Syncer").Logger()
		return nil
	}
}

// NewSyncer builds a Syncer over the tracked catalog entries. Bindings get
// the synthetic deletion-timestamp column attached and bookmarks are
// restricted to the keys this strategy owns.
func NewSyncer(
	srv Server,
	open SourceFactory,
	entries []*catalog.Entry,
	state *singer.State,
	writer singer.MessageWriter,
	opts ...SyncerOption,
) (*Syncer, error) {

	s := &Syncer{
		server:           srv,
		open:             open,
		state:            state,
		writer:           writer,
		streams:          NewStreamBindings(entries),
		shouldRediscover: DefaultRediscoveryPolicy,
		flushInterval:    config.DefaultFlushInterval,
		logger:           zlog.DefaultZLogger.With().Str("component", "binlog.Syncer").Logger(),
		ignoredColumns:   IgnoreSet{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	for streamId := range s.streams {
		state.WhitelistBookmarkKeys(streamId, BookmarkKeys...)
	}
	return s, nil
}

// Run performs one capture pass. Any error opening or reading the event
// source, or from preflight, aborts the run; progress flushed before the
// failure survives for the next run.
func (s *Syncer) Run(ctx context.Context) error {
	if err := VerifyBinlogConfig(ctx, s.server); err != nil {
		return err
	}

	pos, err := CalculateBookmark(ctx, s.server, s.streams, s.state)
	if err != nil {
		return err
	}
	if err := VerifyLogFileExists(ctx, s.server, pos.Name, int64(pos.Pos)); err != nil {
		return err
	}

	serverId := s.serverId
	if serverId != 0 {
		s.logger.Info().Uint32("serverId", serverId).Msg("Using provided server id")
	} else {
		if serverId, err = s.server.ServerId(ctx); err != nil {
			return err
		}
		s.logger.Info().Uint32("serverId", serverId).Msg("No server id provided, using global server id")
	}

	// The end position is captured once, before streaming starts; the run
	// never chases writes beyond it.
	target, err := s.server.MasterStatus(ctx)
	if err != nil {
		return err
	}
	s.logger.Info().Str("file", target.Name).Uint32("pos", target.Pos).Msg("Current master binlog file and pos")

	for _, binding := range s.streams {
		if err := s.writer.Write(&singer.SchemaMessage{
			Stream:        binding.Entry.Stream,
			Schema:        binding.Entry.Schema,
			KeyProperties: binding.Entry.KeyProperties(),
		}); err != nil {
			return err
		}
	}

	src, err := s.open(pos, serverId)
	if err != nil {
		return err
	}
	defer src.Close()

	s.logger.Info().Str("file", pos.Name).Uint32("pos", pos.Pos).Msg("Starting binlog replication")

	if err := s.run(ctx, src, target); err != nil {
		return err
	}

	return s.writer.Write(&singer.StateMessage{Value: s.state.Clone()})
}

func (s *Syncer) run(ctx context.Context, src EventSource, target mysql.Position) error {
	timeExtracted := time.Now().UTC()

	var (
		rowsSaved     int
		eventsSkipped int
		cur           mysql.Position
		havePos       bool
	)

	for {
		ev, pos, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		cur = pos
		havePos = true

		if cur.Compare(target) >= 0 {
			s.logger.Info().
				Str("file", cur.Name).Uint32("pos", cur.Pos).
				Msg("Reader has reached or exceeded end position, exiting")

			// A burst of writes racing the target snapshot can push the
			// reader past it; clamp back so the next run resumes exactly
			// at the captured end, with no gap and no overlap.
			cur = target
			break
		}

		switch ev.Kind {
		case EventRotate:
			UpdateBookmarks(s.state, s.streams, ev.NextLog)

		default:
			streamId := catalog.TapStreamId(ev.Schema, ev.Table)
			binding := s.streams[streamId]
			if binding == nil {
				eventsSkipped++
				if eventsSkipped%s.flushInterval == 0 {
					s.logger.Debug().
						Int("skipped", eventsSkipped).Int("rows", rowsSaved).
						Msg("Skipped events for non-selected tables")
				}
			} else {
				binding, err = s.resolveSchemaDrift(ctx, streamId, binding, ev)
				if err != nil {
					return err
				}
				n, err := s.handleRowEvent(ev, streamId, binding, timeExtracted)
				if err != nil {
					return err
				}
				rowsSaved += n
			}
		}

		if (rowsSaved > 0 && rowsSaved%s.flushInterval == 0) ||
			(eventsSkipped > 0 && eventsSkipped%s.flushInterval == 0) {
			UpdateBookmarks(s.state, s.streams, cur)
			if err := s.writer.Write(&singer.StateMessage{Value: s.state.Clone()}); err != nil {
				return err
			}
		}
	}

	s.logger.Info().Int("rows", rowsSaved).Msg("Processed rows")

	if havePos {
		UpdateBookmarks(s.state, s.streams, cur)
	}
	return nil
}

// handleRowEvent emits one record per affected row, dispatched by event kind.
func (s *Syncer) handleRowEvent(ev *RowChangeEvent, streamId string, binding *StreamBinding, timeExtracted time.Time) (int, error) {
	version := s.state.StreamVersion(streamId)
	columnTypes := ev.ColumnTypes()

	var rows []map[string]interface{}
	switch ev.Kind {
	case EventInsert:
		for _, row := range ev.Rows {
			rows = append(rows, row.After)
		}

	case EventUpdate:
		for _, row := range ev.Rows {
			rows = append(rows, row.After)
		}

	case EventDelete:
		// The deletion timestamp comes from the event's own time, not
		// from this run's extraction time.
		deletedAt := isoFormat(ev.Timestamp.UTC())
		for _, row := range ev.Rows {
			vals := make(map[string]interface{}, len(row.Before)+1)
			for k, v := range row.Before {
				vals[k] = v
			}
			vals[SDCDeletedAt] = deletedAt
			rows = append(rows, vals)
		}

	default:
		s.logger.Debug().
			Str("schema", ev.Schema).Str("table", ev.Table).Str("kind", ev.Kind.String()).
			Msg("Skipping event as it is not an INSERT, UPDATE, or DELETE")
		return 0, nil
	}

	for _, vals := range rows {
		record, err := RowToRecord(binding.Entry, version, columnTypes, vals, binding.DesiredColumns, timeExtracted)
		if err != nil {
			return 0, err
		}
		if err := s.writer.Write(record); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
