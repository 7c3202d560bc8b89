// Package field provides the schema engine for skemadb: a closed set of field
// variants that validate JSON-shaped Go values.
//
// Overview
//   - Leaves: Any(), String(), Number(), Boolean().
//   - Composites: Nullable(f), Array(f), Object(Prop(k, f)...). Objects are
//     closed (UnknownStrict) unless Strip()/Passthrough() is chosen.
//   - Shorthand: Resolve(Descriptor) turns builtins, ListOf, Shape and Opaque
//     literals into a field tree; ParseYAML reads the same shorthand from YAML.
//   - Export: JSONSchema() projects a tree into jsonschema.Schema.
//
// Fields are immutable. Validate walks the tree top-down and stops at the
// first issue (declared key order for objects, index order for arrays) unless
// the context disables fail-fast. Create validates and returns the input
// without coercion.
//
// Example
//
//	user := field.Object(
//	    field.Prop("name", field.String()),
//	    field.Prop("age", field.Number()),
//	    field.Prop("friends", field.Array(field.String())),
//	    field.Prop("isJobless", field.Nullable(field.Boolean())),
//	)
//	err := user.Validate(ctx, map[string]any{"name": "Mongoose", "age": 69, "friends": []any{}})
//
// Errors are skemadb.Issues with JSON Pointer paths; errors.Is maps them onto
// skemadb.ErrShapeMismatch and skemadb.ErrUnknownField.
package field
