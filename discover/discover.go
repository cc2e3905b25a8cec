// Package discover builds catalog entries from information_schema. The
// binlog strategy uses it to refresh a single table's schema when the event
// stream reveals columns the catalog does not know about.
package discover

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
	"github.com/transferwise/pipelinewise-tap-mysql/sqlh"
)

// Discoverer queries table structure from the server.
type Discoverer struct {
	q sqlh.Queryer
}

func New(q sqlh.Queryer) *Discoverer {
	return &Discoverer{q: q}
}

var _ catalog.Discoverer = (*Discoverer)(nil)

type columnInfo struct {
	TableSchema string
	TableName   string
	ColumnName  string
	DataType    string
	ColumnType  string
	ColumnKey   string
}

// DiscoverTable rediscovers one table. When filterDbs is non-empty only those
// databases are searched.
func (d *Discoverer) DiscoverTable(ctx context.Context, filterDbs []string, table string) (*catalog.Entry, error) {
	query := `
		SELECT table_schema, table_name, column_name, data_type, column_type, column_key
		FROM information_schema.columns
		WHERE table_name = ?`
	args := []interface{}{table}
	if len(filterDbs) > 0 {
		query += fmt.Sprintf(" AND table_schema IN (?%s)", strings.Repeat(", ?", len(filterDbs)-1))
		for _, db := range filterDbs {
			args = append(args, db)
		}
	} else {
		query += " AND table_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')"
	}
	query += " ORDER BY table_schema, ordinal_position"

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "discover table %s error", table)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.TableSchema, &c.TableName, &c.ColumnName, &c.DataType, &c.ColumnType, &c.ColumnKey); err != nil {
			return nil, errors.WithStack(err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(cols) == 0 {
		return nil, errors.Errorf("discover table %s: no columns found", table)
	}

	return entryFromColumns(cols), nil
}

func entryFromColumns(cols []columnInfo) *catalog.Entry {
	database := cols[0].TableSchema
	table := cols[0].TableName

	entry := &catalog.Entry{
		Table:       table,
		Stream:      table,
		TapStreamId: catalog.TapStreamId(database, table),
		Schema: &singer.Schema{
			Type:       singer.TypeList{"object"},
			Properties: map[string]*singer.Schema{},
		},
		Metadata: catalog.Metadata{
			Table: catalog.TableMetadata{
				SelectedByDefault: false,
				DatabaseName:      database,
			},
			Columns: map[string]catalog.ColumnMetadata{},
		},
	}

	var keyProps []string
	for _, c := range cols {
		// Only columns of the first matching database; filter_dbs can
		// still match the table name in several schemas.
		if c.TableSchema != database {
			continue
		}
		prop := schemaForColumn(c)
		entry.Schema.Properties[c.ColumnName] = prop

		if c.ColumnKey == "PRI" {
			keyProps = append(keyProps, c.ColumnName)
		}
		entry.Metadata.Columns[c.ColumnName] = catalog.ColumnMetadata{
			SelectedByDefault: prop.Inclusion == singer.InclusionAvailable,
			SQLDatatype:       c.ColumnType,
		}
	}
	entry.Metadata.Table.KeyProperties = keyProps
	return entry
}

func schemaForColumn(c columnInfo) *singer.Schema {
	dataType := strings.ToLower(c.DataType)
	columnType := strings.ToLower(c.ColumnType)

	ret := &singer.Schema{Inclusion: singer.InclusionAvailable}
	if c.ColumnKey == "PRI" {
		ret.Inclusion = singer.InclusionAutomatic
	}

	switch dataType {
	case "bit":
		ret.Type = singer.TypeList{"null", "boolean"}

	case "tinyint", "smallint", "mediumint", "int", "bigint":
		if columnType == "tinyint(1)" {
			ret.Type = singer.TypeList{"null", "boolean"}
		} else {
			ret.Type = singer.TypeList{"null", "integer"}
		}

	case "float", "double", "decimal":
		ret.Type = singer.TypeList{"null", "number"}

	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext", "enum", "set":
		ret.Type = singer.TypeList{"null", "string"}

	case "json":
		ret.Type = singer.TypeList{"null", "string"}

	case "binary", "varbinary", "blob", "tinyblob", "mediumblob", "longblob":
		ret.Type = singer.TypeList{"null", "string"}

	case "date", "datetime", "timestamp":
		ret.Type = singer.TypeList{"null", "string"}
		ret.Format = "date-time"

	case "time":
		ret.Type = singer.TypeList{"null", "string"}
		ret.Format = "time"

	case "year":
		ret.Type = singer.TypeList{"null", "integer"}

	case "geometry", "point", "linestring", "polygon",
		"multipoint", "multilinestring", "multipolygon", "geometrycollection":
		ret.Type = singer.TypeList{"null", "string"}
		ret.Format = "spatial"

	default:
		ret.Inclusion = singer.InclusionUnsupported
		ret.Description = fmt.Sprintf("Unsupported column type %s", c.ColumnType)
	}
	return ret
}
