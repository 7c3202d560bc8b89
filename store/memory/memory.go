// Package memory provides an in-process skemadb.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/reoring/skemadb"
)

// Store keeps deep-cloned document values in a map.
type Store struct {
	mu        sync.RWMutex
	namespace string
	docs      map[string]any
}

var (
	_ skemadb.Store      = (*Store)(nil)
	_ skemadb.Counter    = (*Store)(nil)
	_ skemadb.Namespaced = (*Store)(nil)
)

// New creates an empty store for namespace.
func New(namespace string) *Store {
	return &Store{namespace: namespace, docs: make(map[string]any)}
}

// Namespace returns the namespace label given to New.
func (s *Store) Namespace() string { return s.namespace }

// FindOne returns a copy of the stored document.
func (s *Store) FindOne(ctx context.Context, id string) (skemadb.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return skemadb.Document{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.docs[id]
	if !ok {
		return skemadb.Document{}, false, nil
	}
	return skemadb.Document{ID: id, Value: skemadb.Clone(v)}, true, nil
}

// Upsert stores a copy of value under id.
func (s *Store) Upsert(ctx context.Context, id string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := skemadb.Clone(value)
	s.mu.Lock()
	s.docs[id] = v
	s.mu.Unlock()
	return nil
}

// DeleteOne removes id and returns 1 when it existed.
func (s *Store) DeleteOne(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return 0, nil
	}
	delete(s.docs, id)
	return 1, nil
}

// DeleteMany removes every document.
func (s *Store) DeleteMany(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.docs))
	s.docs = make(map[string]any)
	return n, nil
}

// FindAll returns copies of the documents. Without a sort they come in ID
// order so results are deterministic.
func (s *Store) FindAll(ctx context.Context, limit int, order *skemadb.Sort) ([]skemadb.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]skemadb.Document, 0, len(s.docs))
	for id, v := range s.docs {
		docs = append(docs, skemadb.Document{ID: id, Value: skemadb.Clone(v)})
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	skemadb.SortDocuments(docs, order)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}
