package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skemadb"
	"github.com/reoring/skemadb/field"
	redisstore "github.com/reoring/skemadb/store/redis"
)

// setupTestStore starts a miniredis instance and returns a connected Store.
func setupTestStore(t *testing.T, namespace string) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := redisstore.Open(redisstore.Options{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		Namespace:      namespace,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, mr
}

func TestOpen(t *testing.T) {
	t.Run("requires namespace", func(t *testing.T) {
		mr := miniredis.RunT(t)
		_, err := redisstore.Open(redisstore.Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.Error(t, err)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := redisstore.Open(redisstore.Options{URL: "not-a-url", Namespace: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("default prefix", func(t *testing.T) {
		s, _ := setupTestStore(t, "users")
		assert.Equal(t, "skemadb:users", s.Key())
		assert.Equal(t, "users", s.Namespace())
		require.NoError(t, s.Ping(context.Background()))
	})
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t, "users")

	_, found, err := s.FindOne(ctx, "simon")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Upsert(ctx, "simon", map[string]any{"name": "Simon"}))
	assert.JSONEq(t, `{"name":"Simon"}`, mr.HGet("skemadb:users", "simon"))

	doc, found, err := s.FindOne(ctx, "simon")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]any{"name": "Simon"}, doc.Value)

	n, err := s.DeleteOne(ctx, "simon")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.DeleteOne(ctx, "simon")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestStore_FindAllCountDeleteMany(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t, "scores")
	require.NoError(t, s.Upsert(ctx, "a", map[string]any{"score": 7}))
	require.NoError(t, s.Upsert(ctx, "b", map[string]any{"score": 3}))
	require.NoError(t, s.Upsert(ctx, "c", map[string]any{"score": 5}))

	docs, err := s.FindAll(ctx, 0, &skemadb.Sort{Target: []string{"score"}})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[2].ID)

	docs, err = s.FindAll(ctx, 1, &skemadb.Sort{Target: []string{"score"}, Direction: skemadb.Descending})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = s.DeleteMany(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.False(t, mr.Exists("skemadb:scores"))
}

func TestStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t, "users")
	mr.HSet("skemadb:users", "bad", "{not json")

	_, _, err := s.FindOne(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestStore_ConnectionLost(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t, "users")
	mr.Close()

	c := skemadb.New(s, field.Any())
	_, err := c.Set(ctx, "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `skemadb: upsert "k"`)
}

func TestStore_WithCollection(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, "users")
	schema := field.Object(
		field.Prop("name", field.String()),
		field.Prop("visits", field.Nullable(field.Number())),
	)
	c := skemadb.New(s, schema)

	_, err := c.Set(ctx, "simon", map[string]any{"name": "Simon"})
	require.NoError(t, err)
	_, err = c.Add(ctx, "simon", 2, "visits")
	require.NoError(t, err)
	_, err = c.Add(ctx, "simon.visits", 3)
	require.NoError(t, err)

	v, found, err := c.Get(ctx, "simon", "visits")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(5), v)

	_, err = c.Set(ctx, "simon", "not an object")
	require.ErrorIs(t, err, skemadb.ErrShapeMismatch)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
