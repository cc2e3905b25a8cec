package binlog

import (
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/siddontang/go-mysql/replication"
)

// tableMeta caches per-column metadata derived from a table map event:
// signedness plus enum/set string values, available when the server runs
// with --binlog-row-metadata=FULL.
type tableMeta struct {
	Table           *replication.TableMapEvent
	UnsignedMap     map[int]bool
	EnumStrValueMap map[int][]string
	SetStrValueMap  map[int][]string
}

func newTableMeta(e *replication.TableMapEvent) *tableMeta {
	return &tableMeta{
		Table:           e,
		UnsignedMap:     unsignedMap(e),
		EnumStrValueMap: enumStrValueMap(e),
		SetStrValueMap:  setStrValueMap(e),
	}
}

func enumStrValueMap(e *replication.TableMapEvent) map[int][]string {
	return strValueMap(e, isEnumColumn, e.EnumStrValueString())
}

func setStrValueMap(e *replication.TableMapEvent) map[int][]string {
	return strValueMap(e, isSetColumn, e.SetStrValueString())
}

func strValueMap(
	e *replication.TableMapEvent,
	includeType func(*replication.TableMapEvent, int) bool,
	strValue [][]string,
) map[int][]string {

	if len(strValue) == 0 {
		return nil
	}
	p := 0
	ret := make(map[int][]string)
	for i := 0; i < int(e.ColumnCount); i++ {
		if !includeType(e, i) {
			continue
		}
		ret[i] = strValue[p]
		p++
	}
	return ret
}

func unsignedMap(e *replication.TableMapEvent) map[int]bool {
	if len(e.SignednessBitmap) == 0 {
		return nil
	}
	p := 0
	ret := make(map[int]bool)
	for i := 0; i < int(e.ColumnCount); i++ {
		if !isNumericColumn(e, i) {
			continue
		}
		ret[i] = e.SignednessBitmap[p/8]&(1<<uint(7-p%8)) != 0
		p++
	}
	return ret
}

func isNumericColumn(e *replication.TableMapEvent, i int) bool {
	switch realType(e, i) {
	case gomysql.MYSQL_TYPE_TINY,
		gomysql.MYSQL_TYPE_SHORT,
		gomysql.MYSQL_TYPE_INT24,
		gomysql.MYSQL_TYPE_LONG,
		gomysql.MYSQL_TYPE_LONGLONG,
		gomysql.MYSQL_TYPE_NEWDECIMAL,
		gomysql.MYSQL_TYPE_FLOAT,
		gomysql.MYSQL_TYPE_DOUBLE:
		return true

	default:
		return false
	}
}

func isEnumColumn(e *replication.TableMapEvent, i int) bool {
	return realType(e, i) == gomysql.MYSQL_TYPE_ENUM
}

func isSetColumn(e *replication.TableMapEvent, i int) bool {
	return realType(e, i) == gomysql.MYSQL_TYPE_SET
}

// realType resolves the column's effective type: enum/set hide behind
// MYSQL_TYPE_STRING metadata and DATE decodes as NEWDATE.
func realType(e *replication.TableMapEvent, i int) byte {
	typ := e.ColumnType[i]
	meta := e.ColumnMeta[i]

	switch typ {
	case gomysql.MYSQL_TYPE_STRING:
		rtyp := byte(meta >> 8)
		if rtyp == gomysql.MYSQL_TYPE_ENUM || rtyp == gomysql.MYSQL_TYPE_SET {
			return rtyp
		}

	case gomysql.MYSQL_TYPE_DATE:
		return gomysql.MYSQL_TYPE_NEWDATE
	}

	return typ
}
