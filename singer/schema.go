package singer

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// TypeList is a JSON schema "type" which may be declared either as a single
// string or as a list of strings on the wire.
type TypeList []string

// Contains reports whether t is one of the declared types.
func (tl TypeList) Contains(t string) bool {
	for _, v := range tl {
		if v == t {
			return true
		}
	}
	return false
}

func (tl TypeList) MarshalJSON() ([]byte, error) {
	if len(tl) == 1 {
		return json.Marshal(tl[0])
	}
	return json.Marshal([]string(tl))
}

func (tl *TypeList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*tl = TypeList{s}
		return nil
	}
	var l []string
	if err := json.Unmarshal(data, &l); err != nil {
		return errors.WithStack(err)
	}
	*tl = TypeList(l)
	return nil
}

// Schema is a (subset of) JSON schema describing a stream or one of its
// properties.
type Schema struct {
	Type        TypeList           `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Inclusion   string             `json:"inclusion,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
}

// Inclusion values used by catalog discovery.
const (
	InclusionAutomatic   = "automatic"
	InclusionAvailable   = "available"
	InclusionUnsupported = "unsupported"
)

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	ret := &Schema{
		Type:        append(TypeList(nil), s.Type...),
		Format:      s.Format,
		Inclusion:   s.Inclusion,
		Description: s.Description,
	}
	if s.Properties != nil {
		ret.Properties = make(map[string]*Schema, len(s.Properties))
		for name, prop := range s.Properties {
			ret.Properties[name] = prop.Clone()
		}
	}
	return ret
}
