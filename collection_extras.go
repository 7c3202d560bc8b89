package skemadb

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reoring/skemadb/keypath"
)

// All enumerates documents, optionally sorted by a value path and capped at
// opts.Max. Sorting happens before the cap.
func (c *Collection) All(ctx context.Context, opts AllOptions) (docs []Document, err error) {
	defer c.observe("all", time.Now(), &err)
	docs, err = c.store.FindAll(ctx, opts.Max, opts.Sort)
	if err != nil {
		return nil, fmt.Errorf("skemadb: find all: %w", err)
	}
	// Stores may ignore limit/sort; enforce both here.
	SortDocuments(docs, opts.Sort)
	if opts.Max > 0 && len(docs) > opts.Max {
		docs = docs[:opts.Max]
	}
	for i := range docs {
		docs[i].Value = Clone(docs[i].Value)
	}
	return docs, nil
}

// Add increments the number at key (and path) by n and returns the new whole
// document value. A missing or non-numeric current value counts as 0.
func (c *Collection) Add(ctx context.Context, key string, n float64, path ...string) (out any, err error) {
	defer c.observe("add", time.Now(), &err)
	kp, err := c.writeTarget("add", key, path)
	if err != nil {
		return nil, err
	}
	root, rem := kp.Root, kp.Remainder
	defer c.lock(root)()

	doc, found, err := c.load(ctx, root)
	if err != nil {
		return nil, err
	}
	var cur float64
	if found {
		v, _ := keypath.Get(doc, rem)
		cur, _ = AsNumber(v)
	}
	return c.apply(ctx, "add", root, rem, doc, found, cur+n)
}

// Subtract is Add with -n.
func (c *Collection) Subtract(ctx context.Context, key string, n float64, path ...string) (any, error) {
	return c.Add(ctx, key, -n, path...)
}

// Count returns the number of documents.
func (c *Collection) Count(ctx context.Context) (n int64, err error) {
	defer c.observe("count", time.Now(), &err)
	if ct, ok := c.store.(Counter); ok {
		n, err = ct.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("skemadb: count: %w", err)
		}
		return n, nil
	}
	docs, err := c.store.FindAll(ctx, 0, nil)
	if err != nil {
		return 0, fmt.Errorf("skemadb: count: %w", err)
	}
	return int64(len(docs)), nil
}

// DeleteAll drops every document and returns how many were removed.
func (c *Collection) DeleteAll(ctx context.Context) (n int64, err error) {
	defer c.observe("delete_all", time.Now(), &err)
	n, err = c.store.DeleteMany(ctx)
	if err != nil {
		return 0, fmt.Errorf("skemadb: delete all: %w", err)
	}
	c.logger.Info().Int64("removed", n).Msg("collection cleared")
	return n, nil
}

// Latency measures one round trip to the store.
func (c *Collection) Latency(ctx context.Context) (d time.Duration, err error) {
	defer c.observe("latency", time.Now(), &err)
	start := time.Now()
	if _, err := c.store.FindAll(ctx, 1, nil); err != nil {
		return 0, fmt.Errorf("skemadb: latency probe: %w", err)
	}
	d = time.Since(start)
	c.metrics.SetLatency(d)
	return d, nil
}

// Export snapshots every document, ordered by ID.
func (c *Collection) Export(ctx context.Context) (Export, error) {
	docs, err := c.All(ctx, AllOptions{Sort: &Sort{}})
	if err != nil {
		return Export{}, err
	}
	return Export{Namespace: c.namespace, Data: docs}, nil
}

// Import validates every document of snap and then upserts them. Nothing is
// written when any document fails; issue paths are prefixed with the
// document's position ("/data/3/...").
func (c *Collection) Import(ctx context.Context, snap Export) (n int, err error) {
	defer c.observe("import", time.Now(), &err)
	values := make([]any, len(snap.Data))
	for i, d := range snap.Data {
		if d.ID == "" {
			return 0, c.reject("import", "", SingleIssue(fmt.Sprintf("/data/%d/id", i), CodeRequired, "document id must not be empty"))
		}
		v, err := c.schema.Create(ctx, Clone(d.Value))
		if err != nil {
			if iss, ok := AsIssues(err); ok {
				err = RebaseIssues(fmt.Sprintf("/data/%d/value", i), iss)
			}
			return 0, c.reject("import", d.ID, err)
		}
		values[i] = v
	}
	for i, d := range snap.Data {
		if err := c.store.Upsert(ctx, d.ID, values[i]); err != nil {
			return i, fmt.Errorf("skemadb: import %q: %w", d.ID, err)
		}
	}
	c.logger.Info().Int("documents", len(snap.Data)).Msg("import finished")
	return len(snap.Data), nil
}

// GetAs reads the value at key (and path) and decodes it into T through its
// JSON form.
func GetAs[T any](ctx context.Context, c *Collection, key string, path ...string) (T, bool, error) {
	var out T
	v, found, err := c.Get(ctx, key, path...)
	if err != nil || !found {
		return out, false, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, false, fmt.Errorf("skemadb: encode %q: %w", key, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false, fmt.Errorf("skemadb: decode %q into %T: %w", key, out, err)
	}
	return out, true, nil
}
