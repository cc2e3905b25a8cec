package catalog

import "github.com/transferwise/pipelinewise-tap-mysql/singer"

// PropertyIsSelected reports whether a single column should be replicated:
// an explicit per-column selection wins, otherwise the discovery default.
func (e *Entry) PropertyIsSelected(name string) bool {
	cm, ok := e.Metadata.Columns[name]
	if !ok {
		return false
	}
	if cm.Selected != nil {
		return *cm.Selected
	}
	return cm.SelectedByDefault
}

// SelectedProperties returns the set of schema properties that are selected.
func (e *Entry) SelectedProperties() map[string]struct{} {
	ret := map[string]struct{}{}
	if e.Schema == nil {
		return ret
	}
	for name := range e.Schema.Properties {
		if e.PropertyIsSelected(name) {
			ret[name] = struct{}{}
		}
	}
	return ret
}

// DesiredColumns resolves the column set to replicate: automatic columns are
// always taken, unsupported ones never, available ones only when selected.
func DesiredColumns(selected map[string]struct{}, schema *singer.Schema) map[string]struct{} {
	ret := map[string]struct{}{}
	if schema == nil {
		return ret
	}
	for name, prop := range schema.Properties {
		switch prop.Inclusion {
		case singer.InclusionAutomatic:
			ret[name] = struct{}{}
		case singer.InclusionUnsupported:
		default:
			if _, ok := selected[name]; ok {
				ret[name] = struct{}{}
			}
		}
	}
	return ret
}
