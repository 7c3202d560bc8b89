package field

import (
	skemadb "github.com/reoring/skemadb"
	js "github.com/reoring/skemadb/jsonschema"
)

// JSONSchema projects the field tree into a JSON Schema representation.
func (f *Field) JSONSchema() *js.Schema {
	s := f.jsonSchema()
	if f.hasDef {
		s.Default = f.def
	}
	return s
}

func (f *Field) jsonSchema() *js.Schema {
	switch f.kind {
	case KindString:
		return &js.Schema{Type: "string"}
	case KindNumber:
		return &js.Schema{Type: "number"}
	case KindBoolean:
		return &js.Schema{Type: "boolean"}
	case KindNullable:
		inner := f.elem.JSONSchema()
		if f.elem.kind == KindAny {
			return inner
		}
		if t, ok := inner.Type.(string); ok {
			inner.Type = []string{t, "null"}
			return inner
		}
		return &js.Schema{AnyOf: []*js.Schema{inner, {Type: "null"}}}
	case KindArray:
		return &js.Schema{Type: "array", Items: f.elem.JSONSchema()}
	case KindObject:
		props := make(map[string]*js.Schema, len(f.props))
		order := make([]string, 0, len(f.props))
		var req []string
		for _, p := range f.props {
			props[p.Key] = p.Field.JSONSchema()
			order = append(order, p.Key)
			if !p.Field.optional() {
				req = append(req, p.Key)
			}
		}
		// Unknown policy mapping
		var additional any
		switch f.unknown {
		case skemadb.UnknownStrict:
			additional = false
		case skemadb.UnknownStrip, skemadb.UnknownPassthrough:
			// Runtime accepts unknown keys (and maybe discards them), so JSON
			// Schema marks them as accepted.
			additional = true
		}
		return &js.Schema{Type: "object", Properties: props, Required: req, AdditionalProperties: additional, PropertyOrder: order}
	}
	return &js.Schema{}
}
