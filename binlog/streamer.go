package binlog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/siddontang/go-mysql/replication"

	"github.com/transferwise/pipelinewise-tap-mysql/config"
)

// OpenBinlogSource starts a binlog replication session at pos and returns it
// as an EventSource. Non-row, non-rotate events are consumed internally;
// they only advance the reported position.
func OpenBinlogSource(cfg *config.Config) SourceFactory {
	return func(pos gomysql.Position, serverId uint32) (EventSource, error) {
		syncer := replication.NewBinlogSyncer(cfg.ToSyncerCfg(serverId))
		streamer, err := syncer.StartSync(pos)
		if err != nil {
			syncer.Close()
			return nil, errors.WithStack(err)
		}
		return &binlogSource{
			syncer:   syncer,
			streamer: streamer,
			pos:      pos,
		}, nil
	}
}

type binlogSource struct {
	syncer   *replication.BinlogSyncer
	streamer *replication.BinlogStreamer
	pos      gomysql.Position
}

var _ EventSource = (*binlogSource)(nil)

func (s *binlogSource) Next(ctx context.Context) (*RowChangeEvent, gomysql.Position, error) {
	for {
		be, err := s.streamer.GetEvent(ctx)
		if err != nil {
			return nil, s.pos, errors.WithStack(err)
		}
		if be.Header.LogPos > 0 {
			s.pos.Pos = be.Header.LogPos
		}

		switch e := be.Event.(type) {
		case *replication.RotateEvent:
			next := gomysql.Position{
				Name: string(e.NextLogName),
				Pos:  uint32(e.Position),
			}
			s.pos = next
			return &RowChangeEvent{
				Kind:      EventRotate,
				Timestamp: headerTime(be.Header),
				NextLog:   next,
			}, s.pos, nil

		case *replication.RowsEvent:
			kind := rowsEventKind(be.Header.EventType)
			if kind == EventOther {
				continue
			}
			ev, err := convertRowsEvent(kind, e, be.Header)
			if err != nil {
				return nil, s.pos, err
			}
			return ev, s.pos, nil

		default:
			// Table maps, format descriptions, xids: position-only.
		}
	}
}

func (s *binlogSource) Close() error {
	s.syncer.Close()
	return nil
}

func headerTime(h *replication.EventHeader) time.Time {
	return time.Unix(int64(h.Timestamp), 0).UTC()
}

func rowsEventKind(typ replication.EventType) EventKind {
	switch typ {
	case replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		return EventInsert
	case replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2:
		return EventUpdate
	case replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		return EventDelete
	default:
		return EventOther
	}
}

func convertRowsEvent(kind EventKind, e *replication.RowsEvent, h *replication.EventHeader) (*RowChangeEvent, error) {
	table := e.Table
	names := table.ColumnNameString()
	if len(names) != int(table.ColumnCount) {
		return nil, errors.Errorf(
			"TableMapEvent has no ColumnName, pls make sure you are using >= MySQL-8.0.1 and set --binlog-row-metadata=FULL")
	}

	meta := newTableMeta(table)
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Type: realType(table, i)}
	}

	ev := &RowChangeEvent{
		Kind:      kind,
		Schema:    string(table.Schema),
		Table:     string(table.Table),
		Columns:   columns,
		Timestamp: headerTime(h),
	}

	toMap := func(data []interface{}) (map[string]interface{}, error) {
		if err := normalizeRowData(data, meta); err != nil {
			return nil, err
		}
		ret := make(map[string]interface{}, len(names))
		for i, name := range names {
			ret[name] = data[i]
		}
		return ret, nil
	}

	switch kind {
	case EventUpdate:
		if len(e.Rows)%2 != 0 {
			return nil, errors.Errorf("update rows event with odd row count %d", len(e.Rows))
		}
		for i := 0; i < len(e.Rows); i += 2 {
			before, err := toMap(e.Rows[i])
			if err != nil {
				return nil, err
			}
			after, err := toMap(e.Rows[i+1])
			if err != nil {
				return nil, err
			}
			ev.Rows = append(ev.Rows, RowData{Before: before, After: after})
		}

	case EventInsert:
		for _, row := range e.Rows {
			after, err := toMap(row)
			if err != nil {
				return nil, err
			}
			ev.Rows = append(ev.Rows, RowData{After: after})
		}

	case EventDelete:
		for _, row := range e.Rows {
			before, err := toMap(row)
			if err != nil {
				return nil, err
			}
			ev.Rows = append(ev.Rows, RowData{Before: before})
		}
	}
	return ev, nil
}

// normalizeRowData fixes up raw decoded values in place: signedness, enum
// and set labels, and the date/time shapes the record conversion expects.
func normalizeRowData(data []interface{}, meta *tableMeta) error {
	for i, val := range data {
		if val == nil {
			continue
		}

		// Binlog carries no signedness, values decode as signed; flip
		// the unsigned ones back using the table metadata.
		if isNumericColumn(meta.Table, i) {
			if !meta.UnsignedMap[i] {
				continue
			}
			typ := realType(meta.Table, i)
			switch v := val.(type) {
			case int8:
				data[i] = uint8(v)
			case int16:
				data[i] = uint16(v)
			case int32:
				if v < 0 && typ == gomysql.MYSQL_TYPE_INT24 {
					// 16777215 is the maximum value of mediumint
					data[i] = uint32(16777215 + v + 1)
				} else {
					data[i] = uint32(v)
				}
			case int64:
				data[i] = uint64(v)
			case int:
				data[i] = uint(v)
			default:
				// float/double/decimal ...
			}
			continue
		}

		if isEnumColumn(meta.Table, i) {
			v, ok := val.(int64)
			if !ok {
				return errors.Errorf("expect int64 for enum field but got %T %#v", val, val)
			}
			data[i] = meta.EnumStrValueMap[i][int(v)-1]
			continue
		}

		if isSetColumn(meta.Table, i) {
			v, ok := val.(int64)
			if !ok {
				return errors.Errorf("expect int64 for set field but got %T %#v", val, val)
			}
			setStrValue := meta.SetStrValueMap[i]
			vals := []string{}
			for j := 0; j < 64; j++ {
				if (v & (1 << uint(j))) != 0 {
					vals = append(vals, setStrValue[j])
				}
			}
			data[i] = strings.Join(vals, ",")
			continue
		}

		switch realType(meta.Table, i) {
		case gomysql.MYSQL_TYPE_NEWDATE:
			v, ok := val.(string)
			if !ok {
				return errors.Errorf("expect string for date field but got %T %#v", val, val)
			}
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return errors.WithStack(err)
			}
			data[i] = t

		case gomysql.MYSQL_TYPE_TIME, gomysql.MYSQL_TYPE_TIME2:
			v, ok := val.(string)
			if !ok {
				return errors.Errorf("expect string for time field but got %T %#v", val, val)
			}
			d, err := parseClock(v)
			if err != nil {
				return err
			}
			data[i] = d
		}
	}
	return nil
}

// parseClock parses MySQL TIME text ("-838:59:59", "10:20:30.123456") into
// a duration.
func parseClock(s string) (time.Duration, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0, errors.Errorf("malformed time value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.WithStack(err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.WithStack(err)
	}
	secPart := parts[2]
	frac := time.Duration(0)
	if dot := strings.IndexByte(secPart, '.'); dot >= 0 {
		micros := secPart[dot+1:]
		for len(micros) < 6 {
			micros += "0"
		}
		us, err := strconv.Atoi(micros[:6])
		if err != nil {
			return 0, errors.WithStack(err)
		}
		frac = time.Duration(us) * time.Microsecond
		secPart = secPart[:dot]
	}
	sec, err := strconv.Atoi(secPart)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second + frac
	if neg {
		d = -d
	}
	return d, nil
}
