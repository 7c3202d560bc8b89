package skemadb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reoring/skemadb/i18n"
	"github.com/reoring/skemadb/keypath"
	"github.com/reoring/skemadb/metrics"
)

// Collection is the typed document access layer: it validates every write
// against its Schema and addresses nested values with dotted keys on top of
// a Store.
//
// Keys take the form "root.path.inside.value". The optional path arguments of
// each operation are appended to the key's own path, so Get(ctx, "user.name")
// and Get(ctx, "user", "name") are equivalent.
//
// Path-scoped writes read the document, change a copy and write it back; they
// are not atomic across processes. See WithKeyLocking.
type Collection struct {
	store     Store
	schema    Schema
	logger    zerolog.Logger
	metrics   *metrics.Collector
	locks     *keyLocks
	namespace string
}

// New builds a Collection over store, validating writes with schema. It
// panics when either is nil.
func New(store Store, schema Schema, opts ...Option) *Collection {
	if store == nil || schema == nil {
		panic("skemadb: New requires a store and a schema")
	}
	c := &Collection{
		store:     store,
		schema:    schema,
		logger:    zerolog.Nop(),
		namespace: "default",
	}
	if ns, ok := store.(Namespaced); ok && ns.Namespace() != "" {
		c.namespace = ns.Namespace()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("namespace", c.namespace).Logger()
	return c
}

// Schema returns the schema validating this collection.
func (c *Collection) Schema() Schema { return c.schema }

// Store returns the underlying store.
func (c *Collection) Store() Store { return c.store }

// Namespace returns the namespace label.
func (c *Collection) Namespace() string { return c.namespace }

// Get returns the value stored at key (and path). found is false when the
// document or any path segment is missing. The stored document is validated
// before it is returned; the result is a deep copy.
func (c *Collection) Get(ctx context.Context, key string, path ...string) (value any, found bool, err error) {
	defer func(start time.Time) { c.record("get", start, err, found) }(time.Now())
	kp := target(key, path)
	root, rem := kp.Root, kp.Remainder
	cur, found, err := c.load(ctx, root)
	if err != nil || !found {
		return nil, false, err
	}
	if err := c.schema.Validate(ctx, cur); err != nil {
		return nil, false, fmt.Errorf("skemadb: stored document %q does not match schema: %w", root, err)
	}
	v, ok := keypath.Get(cur, rem)
	if !ok {
		return nil, false, nil
	}
	return Clone(v), true, nil
}

// Has reports whether a non-nil value is stored at key (and path).
func (c *Collection) Has(ctx context.Context, key string, path ...string) (bool, error) {
	v, found, err := c.Get(ctx, key, path...)
	if err != nil {
		return false, err
	}
	return found && v != nil, nil
}

// Set writes value at key (and path) and returns the new whole document
// value. With a path the current document (or an empty object) is updated
// in a copy. Nothing is written unless the resulting document validates.
func (c *Collection) Set(ctx context.Context, key string, value any, path ...string) (out any, err error) {
	defer c.observe("set", time.Now(), &err)
	kp, err := c.writeTarget("set", key, path)
	if err != nil {
		return nil, err
	}
	root, rem := kp.Root, kp.Remainder
	defer c.lock(root)()

	var (
		cur   any
		found bool
	)
	if !kp.IsRoot() {
		if cur, found, err = c.load(ctx, root); err != nil {
			return nil, err
		}
	}
	return c.apply(ctx, "set", root, rem, cur, found, value)
}

// Delete removes the whole document when key has no path and reports whether
// it existed. With a path it removes that property from the document and
// reports false only when the document is absent.
func (c *Collection) Delete(ctx context.Context, key string, path ...string) (deleted bool, err error) {
	defer c.observe("delete", time.Now(), &err)
	kp, err := c.writeTarget("delete", key, path)
	if err != nil {
		return false, err
	}
	root, rem := kp.Root, kp.Remainder
	defer c.lock(root)()

	if kp.IsRoot() {
		n, err := c.store.DeleteOne(ctx, root)
		if err != nil {
			return false, fmt.Errorf("skemadb: delete %q: %w", root, err)
		}
		c.logger.Debug().Str("key", root).Int64("removed", n).Msg("document deleted")
		return n > 0, nil
	}

	cur, found, err := c.load(ctx, root)
	if err != nil || !found {
		return false, err
	}
	next, err := keypath.Unset(Clone(cur), rem)
	if err != nil {
		return false, c.reject("delete", root, pathIssues(err))
	}
	if _, err := c.write(ctx, "delete", root, next); err != nil {
		return false, err
	}
	return true, nil
}

// apply computes the next document value for a write at rem and persists it.
// cur/found describe the currently stored document and are only consulted
// when rem is non-empty.
func (c *Collection) apply(ctx context.Context, op, root, rem string, cur any, found bool, value any) (any, error) {
	next := Clone(value)
	if rem != "" {
		if !found || cur == nil {
			cur = map[string]any{}
		} else {
			cur = Clone(cur)
		}
		var err error
		if next, err = keypath.Set(cur, rem, next); err != nil {
			return nil, c.reject(op, root, pathIssues(err))
		}
	}
	return c.write(ctx, op, root, next)
}

// write validates a whole document value and upserts it.
func (c *Collection) write(ctx context.Context, op, root string, next any) (any, error) {
	created, err := c.schema.Create(ctx, next)
	if err != nil {
		return nil, c.reject(op, root, err)
	}
	if err := c.store.Upsert(ctx, root, created); err != nil {
		return nil, fmt.Errorf("skemadb: upsert %q: %w", root, err)
	}
	c.logger.Debug().Str("op", op).Str("key", root).Msg("document written")
	return Clone(created), nil
}

func (c *Collection) load(ctx context.Context, root string) (any, bool, error) {
	doc, found, err := c.store.FindOne(ctx, root)
	if err != nil {
		return nil, false, fmt.Errorf("skemadb: find %q: %w", root, err)
	}
	return doc.Value, found, nil
}

// reject logs and counts a refused write and returns err unchanged.
func (c *Collection) reject(op, root string, err error) error {
	ev := c.logger.Warn().Str("op", op).Str("key", root)
	if iss, ok := AsIssues(err); ok && len(iss) > 0 {
		ev = ev.Str("code", iss[0].Code).Str("path", iss[0].Path)
		c.metrics.ObserveValidationFailure(c.namespace, op, iss[0].Code)
	}
	ev.Err(err).Msg("write rejected")
	return err
}

func (c *Collection) observe(op string, start time.Time, errp *error) {
	c.record(op, start, *errp, true)
}

func (c *Collection) record(op string, start time.Time, err error, found bool) {
	result := metrics.ResultOK
	switch {
	case err != nil:
		result = metrics.ResultError
		if _, ok := AsIssues(err); ok || errors.Is(err, ErrUndefinedOperand) {
			result = metrics.ResultInvalid
		}
	case !found:
		result = metrics.ResultNotFound
	}
	c.metrics.ObserveOperation(c.namespace, op, result, time.Since(start))
}

func (c *Collection) lock(root string) func() {
	if c.locks == nil {
		return func() {}
	}
	return c.locks.lock(root)
}

// target parses key and appends the extra path parts to its remainder.
func target(key string, path []string) keypath.KeyPath {
	kp := keypath.Parse(key)
	kp.Remainder = keypath.Join(append([]string{kp.Remainder}, path...)...)
	return kp
}

// writeTarget is target for mutations. An empty document ID is refused.
func (c *Collection) writeTarget(op, key string, path []string) (keypath.KeyPath, error) {
	kp := target(key, path)
	if kp.Root == "" {
		return kp, c.reject(op, "", SingleIssue("/", CodeRequired, "document key must not be empty"))
	}
	return kp, nil
}

// pathIssues converts keypath mutation errors into Issues.
func pathIssues(err error) error {
	var pe *keypath.PathError
	if !errors.As(err, &pe) {
		return err
	}
	code := CodeNotObject
	if errors.Is(err, keypath.ErrIndexRange) {
		code = CodeIndexRange
	}
	it := PathFromSegments(pe.Segments).Issue(code, i18n.T(code, nil), "got", pe.Got)
	it.Hint = pe.Error()
	it.Cause = err
	return Issues{it}
}
