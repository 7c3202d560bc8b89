// Package skemadb stores schema-validated JSON-like documents behind a
// pluggable persistence Store.
//
// It provides:
//
// - A Collection that validates every write against a Schema (see package field)
// - Dotted key paths that address properties and array elements inside a document
// - A stable error model via Issues (JSON Pointer, code, message)
// - Array helpers (Push, Pull), counters (Add, Subtract) and Export/Import
//
// Design policy:
// - Keep only public APIs in the root package; store drivers live under store/.
// - Schemas are built with package field or resolved from YAML descriptors.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	schema := field.Object(
//		field.Prop("name", field.String()),
//		field.Prop("age", field.Number()),
//	)
//	coll := skemadb.New(memory.New("users"), schema)
//	_, err := coll.Set(ctx, "simon", map[string]any{"name": "Simon", "age": 20.0})
//	name, found, err := coll.Get(ctx, "simon.name")
package skemadb
