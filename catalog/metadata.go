package catalog

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// TableMetadata is the stream-level ("empty breadcrumb") metadata.
type TableMetadata struct {
	Selected          bool     `json:"selected"`
	SelectedByDefault bool     `json:"selected-by-default"`
	DatabaseName      string   `json:"database-name"`
	ReplicationMethod string   `json:"replication-method"`
	KeyProperties     []string `json:"table-key-properties"`
	IsView            bool     `json:"is-view"`
	RowCount          int64    `json:"row-count"`
}

// ColumnMetadata is the per-property metadata. Selected is a tri-state: an
// explicit selection overrides the default.
type ColumnMetadata struct {
	Selected          *bool  `json:"selected,omitempty"`
	SelectedByDefault bool   `json:"selected-by-default"`
	SQLDatatype       string `json:"sql-datatype,omitempty"`
}

// Metadata holds a table's stream and column metadata. On the wire it is the
// usual breadcrumb list.
type Metadata struct {
	Table   TableMetadata
	Columns map[string]ColumnMetadata
}

type metadataEntry struct {
	Breadcrumb []string        `json:"breadcrumb"`
	Metadata   json.RawMessage `json:"metadata"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	entries := make([]interface{}, 0, len(m.Columns)+1)
	entries = append(entries, map[string]interface{}{
		"breadcrumb": []string{},
		"metadata":   m.Table,
	})
	for name, cm := range m.Columns {
		entries = append(entries, map[string]interface{}{
			"breadcrumb": []string{"properties", name},
			"metadata":   cm,
		})
	}
	return json.Marshal(entries)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var entries []metadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.WithStack(err)
	}
	m.Columns = map[string]ColumnMetadata{}
	for _, e := range entries {
		switch {
		case len(e.Breadcrumb) == 0:
			if err := json.Unmarshal(e.Metadata, &m.Table); err != nil {
				return errors.WithStack(err)
			}
		case len(e.Breadcrumb) == 2 && e.Breadcrumb[0] == "properties":
			var cm ColumnMetadata
			if err := json.Unmarshal(e.Metadata, &cm); err != nil {
				return errors.WithStack(err)
			}
			m.Columns[e.Breadcrumb[1]] = cm
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	ret := Metadata{Table: m.Table}
	ret.Table.KeyProperties = append([]string(nil), m.Table.KeyProperties...)
	if m.Columns != nil {
		ret.Columns = make(map[string]ColumnMetadata, len(m.Columns))
		for name, cm := range m.Columns {
			if cm.Selected != nil {
				sel := *cm.Selected
				cm.Selected = &sel
			}
			ret.Columns[name] = cm
		}
	}
	return ret
}
