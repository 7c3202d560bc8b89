package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/skemadb"
)

// DocumentStore implements skemadb.Store for one namespace of the documents
// table.
type DocumentStore struct {
	db        *DB
	namespace string
}

var (
	_ skemadb.Store      = (*DocumentStore)(nil)
	_ skemadb.Counter    = (*DocumentStore)(nil)
	_ skemadb.Namespaced = (*DocumentStore)(nil)
)

// NewDocumentStore creates a store over namespace. db must be migrated.
func NewDocumentStore(db *DB, namespace string) *DocumentStore {
	return &DocumentStore{db: db, namespace: namespace}
}

// Namespace returns the namespace this store reads and writes.
func (s *DocumentStore) Namespace() string { return s.namespace }

// FindOne retrieves a document by id.
func (s *DocumentStore) FindOne(ctx context.Context, id string) (skemadb.Document, bool, error) {
	var raw string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT value FROM documents WHERE namespace = ? AND id = ?`,
		s.namespace, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return skemadb.Document{}, false, nil
		}
		return skemadb.Document{}, false, err
	}
	v, err := decode(raw)
	if err != nil {
		return skemadb.Document{}, false, fmt.Errorf("decode document %q: %w", id, err)
	}
	return skemadb.Document{ID: id, Value: v}, true, nil
}

// Upsert inserts or replaces the document stored under id.
func (s *DocumentStore) Upsert(ctx context.Context, id string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", id, err)
	}
	_, err = s.db.DB.ExecContext(ctx, `
		INSERT INTO documents (namespace, id, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.namespace, id, string(b))
	return err
}

// DeleteOne removes a document by id.
func (s *DocumentStore) DeleteOne(ctx context.Context, id string) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM documents WHERE namespace = ? AND id = ?`,
		s.namespace, id,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMany removes every document of the namespace.
func (s *DocumentStore) DeleteMany(ctx context.Context) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM documents WHERE namespace = ?`,
		s.namespace,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindAll lists documents. A sort target is ranked by JSON type first and
// then by scalar value, matching skemadb.Compare, so the LIMIT cuts the same
// rows as the other stores. Documents are otherwise ordered by id.
func (s *DocumentStore) FindAll(ctx context.Context, limit int, order *skemadb.Sort) ([]skemadb.Document, error) {
	query := `SELECT id, value FROM documents WHERE namespace = ?`
	args := []any{s.namespace}

	dir := "ASC"
	if order != nil && order.Direction == skemadb.Descending {
		dir = "DESC"
	}
	switch {
	case order != nil && len(order.Target) > 0:
		query += ` ORDER BY ` + typeRankSQL + ` ` + dir + `, ` + scalarSQL + ` ` + dir + `, id ASC`
		path := jsonPath(order.Target)
		args = append(args, path, path, path)
	case order != nil:
		query += ` ORDER BY id ` + dir
	default:
		query += ` ORDER BY id ASC`
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []skemadb.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		v, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %q: %w", id, err)
		}
		docs = append(docs, skemadb.Document{ID: id, Value: v})
	}
	return docs, rows.Err()
}

// Count returns the number of documents in the namespace.
func (s *DocumentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE namespace = ?`,
		s.namespace,
	).Scan(&n)
	return n, err
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// typeRankSQL ranks the JSON type at a path as skemadb.Compare does: null or
// missing, numbers, strings, objects, arrays, booleans.
const typeRankSQL = `CASE json_type(value, ?)
	WHEN 'integer' THEN 1 WHEN 'real' THEN 1
	WHEN 'text' THEN 2
	WHEN 'object' THEN 3
	WHEN 'array' THEN 4
	WHEN 'true' THEN 5 WHEN 'false' THEN 5
	ELSE 0 END`

// scalarSQL orders values within one rank. Objects and arrays compare equal.
const scalarSQL = `CASE WHEN json_type(value, ?) IN ('object', 'array') THEN NULL
	ELSE json_extract(value, ?) END`

// jsonPath renders segments as a SQLite JSON path with every key quoted, so
// segments holding dots or brackets address a single member.
func jsonPath(segs []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range segs {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(s, `"`, `\"`))
		b.WriteString(`"`)
	}
	return b.String()
}
