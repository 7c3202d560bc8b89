// Package redis provides a skemadb.Store backed by one Redis hash per
// namespace: key "<prefix>:<namespace>", field = document id, value = JSON.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/reoring/skemadb"
)

// DefaultPrefix is used when Options.Prefix is empty.
const DefaultPrefix = "skemadb"

// Options configures the Redis connection and the hash the store uses.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0")
	URL string

	// Prefix is prepended to the namespace to form the hash key.
	Prefix string

	// Namespace selects the collection. It must not be empty.
	Namespace string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// Store implements skemadb.Store using go-redis/v9.
type Store struct {
	client    *redis.Client
	key       string
	namespace string
}

var (
	_ skemadb.Store      = (*Store)(nil)
	_ skemadb.Counter    = (*Store)(nil)
	_ skemadb.Namespaced = (*Store)(nil)
)

// Open connects to Redis and verifies the connection with PING.
func Open(opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Namespace == "" {
		return nil, errors.New("redis store: namespace is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, opts.Prefix, opts.Namespace), nil
}

// New wraps an existing client. The store owns client once Close is called.
func New(client *redis.Client, prefix, namespace string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, key: prefix + ":" + namespace, namespace: namespace}
}

// Namespace returns the namespace this store reads and writes.
func (s *Store) Namespace() string { return s.namespace }

// Key returns the Redis hash key holding the documents.
func (s *Store) Key() string { return s.key }

// FindOne loads one document (HGET).
func (s *Store) FindOne(ctx context.Context, id string) (skemadb.Document, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return skemadb.Document{}, false, nil
		}
		return skemadb.Document{}, false, fmt.Errorf("failed to get %s from %s: %w", id, s.key, err)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return skemadb.Document{}, false, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	return skemadb.Document{ID: id, Value: v}, true, nil
}

// Upsert writes one document (HSET).
func (s *Store) Upsert(ctx context.Context, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	if err := s.client.HSet(ctx, s.key, id, data).Err(); err != nil {
		return fmt.Errorf("failed to set %s in %s: %w", id, s.key, err)
	}
	return nil
}

// DeleteOne removes one document (HDEL).
func (s *Store) DeleteOne(ctx context.Context, id string) (int64, error) {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s from %s: %w", id, s.key, err)
	}
	return n, nil
}

// DeleteMany drops the whole hash.
func (s *Store) DeleteMany(ctx context.Context) (int64, error) {
	var n *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		n = p.HLen(ctx, s.key)
		p.Del(ctx, s.key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", s.key, err)
	}
	return n.Val(), nil
}

// FindAll loads the hash (HGETALL) and sorts and limits in process; Redis
// hashes have no order of their own.
func (s *Store) FindAll(ctx context.Context, limit int, order *skemadb.Sort) ([]skemadb.Document, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.key, err)
	}
	docs := make([]skemadb.Document, 0, len(all))
	for id, raw := range all {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", id, err)
		}
		docs = append(docs, skemadb.Document{ID: id, Value: v})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	skemadb.SortDocuments(docs, order)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Count returns the number of documents (HLEN).
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.key, err)
	}
	return n, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
