package skemadb

import (
	"github.com/rs/zerolog"

	"github.com/reoring/skemadb/metrics"
)

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// WithMetrics records operation counts, durations, rejected writes and
// latency probes on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Collection) { c.metrics = m }
}

// WithKeyLocking serializes writes to the same root key issued through this
// Collection, so concurrent path-scoped read-modify-write cycles no longer
// lose updates. It is in-process only; without it concurrent path-scoped
// writers race and the last write wins.
func WithKeyLocking() Option {
	return func(c *Collection) { c.locks = newKeyLocks() }
}

// WithNamespaceLabel overrides the namespace used in logs, metrics and
// exports. By default it comes from the store (Namespaced) or is "default".
func WithNamespaceLabel(ns string) Option {
	return func(c *Collection) { c.namespace = ns }
}
