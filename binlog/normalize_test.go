package binlog

import (
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

func TestConvertValueDatetimeFamily(t *testing.T) {
	assert := assert.New(t)
	dtProp := &singer.Schema{Type: singer.TypeList{"null", "string"}, Format: "date-time"}

	// Timestamps are instants: the emitted text only depends on the instant,
	// not on the zone the value was decoded in.
	{
		instant := time.Date(2021, 3, 24, 8, 12, 56, 0, time.UTC)
		for _, loc := range []*time.Location{time.UTC, time.FixedZone("plus2", 2*3600), time.FixedZone("minus5", -5*3600)} {
			got, err := convertValue(instant.In(loc), gomysql.MYSQL_TYPE_TIMESTAMP2, dtProp)
			assert.NoError(err)
			assert.Equal("2021-03-24T08:12:56+00:00", got)
		}
	}

	// Naive datetimes keep their wall clock and get a UTC marker.
	{
		got, err := convertValue(
			time.Date(2021, 1, 1, 1, 4, 0, 67483000, time.UTC),
			gomysql.MYSQL_TYPE_DATETIME2, dtProp)
		assert.NoError(err)
		assert.Equal("2021-01-01T01:04:00.067483+00:00", got)
	}

	// Dates land at midnight.
	{
		got, err := convertValue(
			time.Date(2021, 6, 14, 0, 0, 0, 0, time.UTC),
			gomysql.MYSQL_TYPE_NEWDATE, dtProp)
		assert.NoError(err)
		assert.Equal("2021-06-14T00:00:00+00:00", got)
	}
}

func TestConvertValueDuration(t *testing.T) {
	assert := assert.New(t)

	timeProp := &singer.Schema{Type: singer.TypeList{"null", "string"}, Format: "time"}
	dtProp := &singer.Schema{Type: singer.TypeList{"null", "string"}, Format: "date-time"}

	d := 9*time.Hour + 10*time.Minute + 24*time.Second

	got, err := convertValue(d, gomysql.MYSQL_TYPE_TIME2, timeProp)
	assert.NoError(err)
	assert.Equal("09:10:24", got)

	got, err = convertValue(-d, gomysql.MYSQL_TYPE_TIME2, timeProp)
	assert.NoError(err)
	assert.Equal("-09:10:24", got)

	got, err = convertValue(d+250*time.Microsecond, gomysql.MYSQL_TYPE_TIME2, timeProp)
	assert.NoError(err)
	assert.Equal("09:10:24.000250", got)

	// A TIME column bound to a date-time property becomes an epoch offset.
	got, err = convertValue(d, gomysql.MYSQL_TYPE_TIME2, dtProp)
	assert.NoError(err)
	assert.Equal("1970-01-01T09:10:24+00:00", got)
}

func TestConvertValueJSON(t *testing.T) {
	assert := assert.New(t)
	prop := &singer.Schema{Type: singer.TypeList{"null", "string"}}

	// JSON text from the log is re-serialized canonically.
	got, err := convertValue([]byte(`{"b": 2, "a": 1}`), gomysql.MYSQL_TYPE_JSON, prop)
	assert.NoError(err)
	assert.Equal(`{"a":1,"b":2}`, got)

	// Binary leaves inside an already-decoded document are turned into text.
	got, err = convertValue(
		map[string]interface{}{"key": []byte("value"), "items": []interface{}{[]byte("x"), int64(3)}},
		gomysql.MYSQL_TYPE_JSON, prop)
	assert.NoError(err)
	assert.Equal(`{"items":["x",3],"key":"value"}`, got)

	_, err = convertValue([]byte(`{broken`), gomysql.MYSQL_TYPE_JSON, prop)
	assert.Error(err)
}

func TestConvertValueSpatial(t *testing.T) {
	assert := assert.New(t)
	prop := &singer.Schema{Type: singer.TypeList{"null", "object"}, Format: "spatial"}

	point := geom.NewPointFlat(geom.XY, []float64{1, 2})
	payload, err := wkb.Marshal(point, wkb.NDR)
	assert.NoError(err)

	data := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(data, 4326)
	data = append(data, payload...)

	got, err := convertValue(data, 0, prop)
	assert.NoError(err)
	assert.Equal(`{"type":"Point","coordinates":[1,2]}`, got)

	got, err = convertValue(nil, 0, prop)
	assert.NoError(err)
	assert.Nil(got)

	_, err = convertValue([]byte{1, 2}, 0, prop)
	assert.Error(err)
}

func TestConvertValueBoolean(t *testing.T) {
	assert := assert.New(t)
	boolProp := &singer.Schema{Type: singer.TypeList{"null", "boolean"}}

	cases := []struct {
		val      interface{}
		colType  byte
		expected interface{}
	}{
		{nil, gomysql.MYSQL_TYPE_TINY, nil},
		{int64(0), gomysql.MYSQL_TYPE_TINY, false},
		{int64(1), gomysql.MYSQL_TYPE_TINY, true},
		{int64(5), gomysql.MYSQL_TYPE_TINY, true},
		{int64(0), gomysql.MYSQL_TYPE_BIT, false},
		{int64(2), gomysql.MYSQL_TYPE_BIT, true},
		{true, gomysql.MYSQL_TYPE_TINY, true},
	}
	for _, c := range cases {
		got, err := convertValue(c.val, c.colType, boolProp)
		assert.NoError(err)
		assert.Equal(c.expected, got, "val=%v type=%d", c.val, c.colType)
	}
}

func TestConvertValueBytesAndDecimal(t *testing.T) {
	assert := assert.New(t)
	strProp := &singer.Schema{Type: singer.TypeList{"null", "string"}}
	numProp := &singer.Schema{Type: singer.TypeList{"null", "number"}}

	got, err := convertValue([]byte{0xde, 0xad, 0xbe, 0xef}, gomysql.MYSQL_TYPE_BLOB, strProp)
	assert.NoError(err)
	assert.Equal("deadbeef", got)

	// Decimals keep full precision but still serialize as bare numbers, as
	// the declared number type requires.
	got, err = convertValue(decimal.New(1234, -2), gomysql.MYSQL_TYPE_NEWDECIMAL, numProp)
	assert.NoError(err)
	assert.Equal(json.Number("12.34"), got)
	data, err := json.Marshal(got)
	assert.NoError(err)
	assert.Equal("12.34", string(data))

	// Plain scalars pass through untouched.
	got, err = convertValue(int64(42), gomysql.MYSQL_TYPE_LONG, numProp)
	assert.NoError(err)
	assert.Equal(int64(42), got)

	got, err = convertValue("hello", gomysql.MYSQL_TYPE_VARCHAR, strProp)
	assert.NoError(err)
	assert.Equal("hello", got)
}

func TestRowToRecord(t *testing.T) {
	assert := assert.New(t)

	entry := newTestEntry("db", "t",
		map[string]*singer.Schema{
			"id":   {Type: singer.TypeList{"integer"}, Inclusion: singer.InclusionAutomatic},
			"name": {Type: singer.TypeList{"null", "string"}, Inclusion: singer.InclusionAvailable},
		},
		map[string]catalog.ColumnMetadata{
			"id":     {SelectedByDefault: true},
			"name":   {SelectedByDefault: true},
			"hidden": {SelectedByDefault: false},
		},
		"id")

	desired := map[string]struct{}{"id": {}, "name": {}}
	columnTypes := map[string]byte{
		"id":     gomysql.MYSQL_TYPE_LONG,
		"name":   gomysql.MYSQL_TYPE_VARCHAR,
		"hidden": gomysql.MYSQL_TYPE_VARCHAR,
	}
	row := map[string]interface{}{"id": int64(1), "name": "foo", "hidden": "bar"}
	te := time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)

	record, err := RowToRecord(entry, 3, columnTypes, row, desired, te)
	assert.NoError(err)
	assert.Equal("db-t", record.Stream)
	assert.Equal(int64(3), record.Version)
	assert.Equal(te, record.TimeExtracted)
	assert.Equal(map[string]interface{}{"id": int64(1), "name": "foo"}, record.Record)
}
