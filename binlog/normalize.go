package binlog

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

// Timestamp columns carry an absolute instant; everything else in the
// datetime family is naive wall-clock time.
func isTimestampType(typ byte) bool {
	return typ == gomysql.MYSQL_TYPE_TIMESTAMP || typ == gomysql.MYSQL_TYPE_TIMESTAMP2
}

func isDateType(typ byte) bool {
	return typ == gomysql.MYSQL_TYPE_DATE || typ == gomysql.MYSQL_TYPE_NEWDATE
}

// RowToRecord converts one row's raw values into a record message, keeping
// only the desired columns.
func RowToRecord(
	entry *catalog.Entry,
	version int64,
	columnTypes map[string]byte,
	row map[string]interface{},
	desired map[string]struct{},
	timeExtracted time.Time,
) (*singer.RecordMessage, error) {

	record := make(map[string]interface{}, len(row))
	for name, val := range row {
		if _, ok := desired[name]; !ok {
			continue
		}
		prop := entry.Schema.Properties[name]
		if prop == nil {
			prop = &singer.Schema{}
		}
		converted, err := convertValue(val, columnTypes[name], prop)
		if err != nil {
			return nil, errors.WithMessagef(err, "stream %s column %s", entry.TapStreamId, name)
		}
		record[name] = converted
	}

	return &singer.RecordMessage{
		Stream:        entry.Stream,
		Record:        record,
		Version:       version,
		TimeExtracted: timeExtracted,
	}, nil
}

func convertValue(val interface{}, columnType byte, prop *singer.Schema) (interface{}, error) {
	switch v := val.(type) {
	case time.Time:
		if isDateType(columnType) {
			return v.Format("2006-01-02") + "T00:00:00+00:00", nil
		}
		if isTimestampType(columnType) {
			// Timestamps are instants: converting to UTC yields the
			// same result in any process-local zone.
			return isoFormat(v.UTC()), nil
		}
		// Naive datetime: keep the wall clock, declare it UTC.
		return isoFormat(v), nil

	case time.Duration:
		if prop.Format == "time" {
			return clockFormat(v), nil
		}
		// TIME mapped to a date-time property: offset from the Unix epoch.
		return isoFormat(time.Unix(0, 0).UTC().Add(v)), nil
	}

	if columnType == gomysql.MYSQL_TYPE_JSON {
		return canonicalJSON(val)
	}

	if prop.Format == "spatial" {
		return spatialToGeoJSON(val)
	}

	if v, ok := val.([]byte); ok {
		return hex.EncodeToString(v), nil
	}

	if prop.Type.Contains("boolean") {
		return boolValue(val, columnType), nil
	}

	// Decimals go out as raw JSON numbers, full precision kept.
	if v, ok := val.(decimal.Decimal); ok {
		return json.Number(v.String()), nil
	}

	return val, nil
}

// isoFormat renders t's wall clock as ISO-8601 with a UTC offset,
// microseconds only when present.
func isoFormat(t time.Time) string {
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "+00:00"
}

// clockFormat renders a duration as HH:MM:SS(.ffffff), no date or zone.
func clockFormat(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ret := fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
	if us := (d % time.Second) / time.Microsecond; us != 0 {
		ret += fmt.Sprintf(".%06d", us)
	}
	return ret
}

// canonicalJSON re-serializes a JSON value to text, decoding any binary
// leaves on the way.
func canonicalJSON(val interface{}) (interface{}, error) {
	decoded := jsonBytesToString(val)
	if raw, ok := decoded.(string); ok {
		// Already JSON text from the log: normalize through a decode
		// and re-encode round trip.
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errors.WithStack(err)
		}
		decoded = v
	}
	data, err := json.Marshal(decoded)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(data), nil
}

func jsonBytesToString(val interface{}) interface{} {
	switch v := val.(type) {
	case []byte:
		return string(v)
	case map[string]interface{}:
		ret := make(map[string]interface{}, len(v))
		for k, item := range v {
			ret[k] = jsonBytesToString(item)
		}
		return ret
	case []interface{}:
		ret := make([]interface{}, len(v))
		for i, item := range v {
			ret[i] = jsonBytesToString(item)
		}
		return ret
	default:
		return val
	}
}

// spatialToGeoJSON decodes a MySQL geometry value: 4 bytes little-endian
// SRID, then the WKB payload. Null stays null.
func spatialToGeoJSON(val interface{}) (interface{}, error) {
	var data []byte
	switch v := val.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, errors.Errorf("expect bytes for spatial value but got %T", val)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 5 {
		return nil, errors.Errorf("spatial value too short: %d bytes", len(data))
	}

	// The SRID prefix is not part of GeoJSON, strip it off.
	_ = binary.LittleEndian.Uint32(data[:4])
	g, err := wkb.Unmarshal(data[4:])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	out, err := geojson.Marshal(g)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(out), nil
}

// boolValue maps a raw value onto a boolean property: null stays null, zero
// is false, BIT columns compare against zero, anything else non-zero is true.
func boolValue(val interface{}, columnType byte) interface{} {
	if val == nil {
		return nil
	}
	if b, ok := val.(bool); ok {
		return b
	}
	n, numeric := intValue(val)
	if numeric && n == 0 {
		return false
	}
	if columnType == gomysql.MYSQL_TYPE_BIT {
		return numeric && n != 0
	}
	return true
}

func intValue(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), v == float32(int64(v))
	case float64:
		return int64(v), v == float64(int64(v))
	default:
		return 0, false
	}
}
