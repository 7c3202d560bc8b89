package skemadb

import (
	"context"
)

// Schema is the capability a Collection needs from a field tree: validate a
// whole document value, and create (validate, then return) a value to write.
// field.Field implements it.
type Schema interface {
	// Validate reports Issues when v does not conform.
	Validate(ctx context.Context, v any) error
	// Create validates v and returns the value to persist. Implementations
	// do not coerce types.
	Create(ctx context.Context, v any) (any, error)
}

// Store is the persistence collaborator a Collection delegates to. Each
// implementation serves a single namespace and must provide atomic
// single-document upsert, find and delete.
type Store interface {
	// FindOne loads a document; found is false when the id is absent.
	FindOne(ctx context.Context, id string) (doc Document, found bool, err error)
	// Upsert creates the document when absent and replaces it otherwise.
	Upsert(ctx context.Context, id string, value any) error
	// DeleteOne removes a document and returns the number removed (0 or 1).
	DeleteOne(ctx context.Context, id string) (int64, error)
	// DeleteMany drops every document in the namespace.
	DeleteMany(ctx context.Context) (int64, error)
	// FindAll enumerates documents. limit <= 0 means unlimited; sort may be nil.
	FindAll(ctx context.Context, limit int, sort *Sort) ([]Document, error)
}

// Counter is optionally implemented by stores that can count documents
// without loading them.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Namespaced is optionally implemented by stores to report their namespace
// (used by Export).
type Namespaced interface {
	Namespace() string
}

// Validate is a convenience wrapper around Schema.Validate.
func Validate(ctx context.Context, s Schema, v any) error {
	return s.Validate(ctx, v)
}

// Is returns true if v conforms to the schema s.
func Is(ctx context.Context, s Schema, v any) bool {
	return s.Validate(ctx, v) == nil
}

// ---- Validation context options ----

type contextKey int

const (
	_ctxKeyFailFast contextKey = iota
)

// WithFailFast returns a child context that controls whether validation stops
// at the first issue. Validation is fail-fast unless disabled here.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether the current validation should stop on the first
// issue. It defaults to true.
func IsFailFast(ctx context.Context) bool {
	v, ok := ctx.Value(_ctxKeyFailFast).(bool)
	if !ok {
		return true
	}
	return v
}
