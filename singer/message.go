package singer

import (
	"encoding/json"
	"time"
)

// TimeFormat is the wire format of message timestamps: RFC 3339 with
// microsecond precision.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Message is one line of the outbound protocol. Implementations marshal
// themselves with a "type" discriminator field.
type Message interface {
	messageType() string
}

// SchemaMessage announces a stream's schema and key columns. It is emitted
// once per stream at startup and again whenever the schema is hot-swapped.
type SchemaMessage struct {
	Stream        string
	Schema        *Schema
	KeyProperties []string
}

func (m *SchemaMessage) messageType() string { return "SCHEMA" }

func (m *SchemaMessage) MarshalJSON() ([]byte, error) {
	keys := m.KeyProperties
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(&struct {
		Type          string   `json:"type"`
		Stream        string   `json:"stream"`
		Schema        *Schema  `json:"schema"`
		KeyProperties []string `json:"key_properties"`
	}{m.messageType(), m.Stream, m.Schema, keys})
}

// RecordMessage carries one converted row.
type RecordMessage struct {
	Stream        string
	Record        map[string]interface{}
	Version       int64
	TimeExtracted time.Time
}

func (m *RecordMessage) messageType() string { return "RECORD" }

func (m *RecordMessage) MarshalJSON() ([]byte, error) {
	var te string
	if !m.TimeExtracted.IsZero() {
		te = m.TimeExtracted.UTC().Format(TimeFormat)
	}
	return json.Marshal(&struct {
		Type          string                 `json:"type"`
		Stream        string                 `json:"stream"`
		Record        map[string]interface{} `json:"record"`
		Version       int64                  `json:"version,omitempty"`
		TimeExtracted string                 `json:"time_extracted,omitempty"`
	}{m.messageType(), m.Stream, m.Record, m.Version, te})
}

// StateMessage carries a snapshot of resume state.
type StateMessage struct {
	Value State
}

func (m *StateMessage) messageType() string { return "STATE" }

func (m *StateMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type  string `json:"type"`
		Value State  `json:"value"`
	}{m.messageType(), m.Value})
}

// ActivateVersionMessage marks a generation boundary for a stream. It is used
// by the full-table strategy, not by binlog capture.
type ActivateVersionMessage struct {
	Stream  string
	Version int64
}

func (m *ActivateVersionMessage) messageType() string { return "ACTIVATE_VERSION" }

func (m *ActivateVersionMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type    string `json:"type"`
		Stream  string `json:"stream"`
		Version int64  `json:"version"`
	}{m.messageType(), m.Stream, m.Version})
}

var (
	_ Message = (*SchemaMessage)(nil)
	_ Message = (*RecordMessage)(nil)
	_ Message = (*StateMessage)(nil)
	_ Message = (*ActivateVersionMessage)(nil)
)
