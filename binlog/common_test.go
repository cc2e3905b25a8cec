package binlog

import (
	"context"
	"io"

	"github.com/siddontang/go-mysql/mysql"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

type fakeServer struct {
	format   string
	rowImage string
	logs     []BinaryLog
	master   mysql.Position
	serverId uint32
}

func (s *fakeServer) BinlogFormat(ctx context.Context) (string, error) { return s.format, nil }

func (s *fakeServer) BinlogRowImage(ctx context.Context) (string, error) { return s.rowImage, nil }

func (s *fakeServer) BinaryLogs(ctx context.Context) ([]BinaryLog, error) { return s.logs, nil }
func (s *fakeServer) MasterStatus(ctx context.Context) (mysql.Position, error) {
	return s.master, nil
}

func (s *fakeServer) ServerId(ctx context.Context) (uint32, error) { return s.serverId, nil }

func newFakeServer() *fakeServer {
	return &fakeServer{
		format:   "ROW",
		rowImage: "FULL",
		logs: []BinaryLog{
			{Name: "binlog0001", Size: 1500},
			{Name: "binlog0002", Size: 1500},
			{Name: "binlog0003", Size: 1500},
		},
		master:   mysql.Position{Name: "binlog0003", Pos: 1000},
		serverId: 123,
	}
}

type sourceStep struct {
	ev  *RowChangeEvent
	pos mysql.Position
}

type fakeSource struct {
	steps  []sourceStep
	idx    int
	closed bool
}

func (s *fakeSource) Next(ctx context.Context) (*RowChangeEvent, mysql.Position, error) {
	if s.idx >= len(s.steps) {
		return nil, mysql.Position{}, io.EOF
	}
	step := s.steps[s.idx]
	s.idx++
	return step.ev, step.pos, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeWriter struct {
	msgs []singer.Message
}

func (w *fakeWriter) Write(msg singer.Message) error {
	w.msgs = append(w.msgs, msg)
	return nil
}

func (w *fakeWriter) records() []*singer.RecordMessage {
	var ret []*singer.RecordMessage
	for _, msg := range w.msgs {
		if rec, ok := msg.(*singer.RecordMessage); ok {
			ret = append(ret, rec)
		}
	}
	return ret
}

func (w *fakeWriter) schemas() []*singer.SchemaMessage {
	var ret []*singer.SchemaMessage
	for _, msg := range w.msgs {
		if sm, ok := msg.(*singer.SchemaMessage); ok {
			ret = append(ret, sm)
		}
	}
	return ret
}

func (w *fakeWriter) states() []*singer.StateMessage {
	var ret []*singer.StateMessage
	for _, msg := range w.msgs {
		if sm, ok := msg.(*singer.StateMessage); ok {
			ret = append(ret, sm)
		}
	}
	return ret
}

type fakeDiscoverer struct {
	entries []*catalog.Entry
	calls   []string
}

func (d *fakeDiscoverer) DiscoverTable(ctx context.Context, filterDbs []string, table string) (*catalog.Entry, error) {
	d.calls = append(d.calls, table)
	entry := d.entries[0]
	d.entries = d.entries[1:]
	return entry, nil
}

func boolPtr(b bool) *bool { return &b }

func newTestEntry(db, table string, props map[string]*singer.Schema, cols map[string]catalog.ColumnMetadata, keys ...string) *catalog.Entry {
	return &catalog.Entry{
		Table:       table,
		Stream:      catalog.TapStreamId(db, table),
		TapStreamId: catalog.TapStreamId(db, table),
		Schema: &singer.Schema{
			Type:       singer.TypeList{"object"},
			Properties: props,
		},
		Metadata: catalog.Metadata{
			Table: catalog.TableMetadata{
				Selected:          true,
				DatabaseName:      db,
				ReplicationMethod: "LOG_BASED",
				KeyProperties:     keys,
			},
			Columns: cols,
		},
	}
}
