package skemadb_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	skemadb "github.com/reoring/skemadb"
	"github.com/reoring/skemadb/field"
	"github.com/reoring/skemadb/metrics"
	"github.com/reoring/skemadb/store/memory"
)

func userSchema() *field.Field {
	return field.Object(
		field.Prop("name", field.String()),
		field.Prop("age", field.Number()),
		field.Prop("isJobless", field.Nullable(field.Boolean())),
		field.Prop("friends", field.Nullable(field.Array(field.String()))),
	)
}

func newUsers(t *testing.T, opts ...skemadb.Option) *skemadb.Collection {
	t.Helper()
	return skemadb.New(memory.New("users"), userSchema(), opts...)
}

func mustGet(t *testing.T, c *skemadb.Collection, key string, path ...string) any {
	t.Helper()
	v, found, err := c.Get(context.Background(), key, path...)
	if err != nil {
		t.Fatalf("get %s %v: %v", key, path, err)
	}
	if !found {
		t.Fatalf("get %s %v: not found", key, path)
	}
	return v
}

func TestCollection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	in := map[string]any{"name": "Mongoose", "age": 69}
	out, err := c.Set(ctx, "user", in)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("set returned %v", out)
	}
	if got := mustGet(t, c, "user"); !reflect.DeepEqual(got, in) {
		t.Fatalf("want %v, got %v", in, got)
	}

	_, found, err := c.Get(ctx, "nobody")
	if err != nil || found {
		t.Fatalf("missing doc: found=%v err=%v", found, err)
	}
}

func TestCollection_NestedRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "user", map[string]any{"name": "Mongoose", "age": 69}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Set(ctx, "user", "Monkey", "name"); err != nil {
		t.Fatalf("nested set: %v", err)
	}
	if got := mustGet(t, c, "user", "name"); got != "Monkey" {
		t.Fatalf("want Monkey, got %v", got)
	}
	// dotted key and path arguments address the same place
	if got := mustGet(t, c, "user.name"); got != "Monkey" {
		t.Fatalf("want Monkey, got %v", got)
	}
	want := map[string]any{"name": "Monkey", "age": 69}
	if got := mustGet(t, c, "user"); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if _, found, _ := c.Get(ctx, "user", "missing", "deeper"); found {
		t.Fatal("missing intermediate must not be found")
	}
}

func TestCollection_RejectedWritesPersistNothing(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	orig := map[string]any{"name": "Mongoose", "age": 69}
	if _, err := c.Set(ctx, "user", orig); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		do   func() error
		want error
	}{
		{"wrong leaf type", func() error { _, err := c.Set(ctx, "user", 42, "name"); return err }, skemadb.ErrShapeMismatch},
		{"unknown key", func() error {
			_, err := c.Set(ctx, "user", map[string]any{"name": "x", "age": 1, "extra": true})
			return err
		}, skemadb.ErrUnknownField},
		{"unknown nested key", func() error { _, err := c.Set(ctx, "user", 1, "hobby"); return err }, skemadb.ErrUnknownField},
		{"through a scalar", func() error { _, err := c.Set(ctx, "user", "x", "name", "first"); return err }, skemadb.ErrNonObjectTarget},
		{"remove required key", func() error { _, err := c.Delete(ctx, "user", "age"); return err }, skemadb.ErrShapeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.do()
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if _, ok := skemadb.AsIssues(err); !ok {
				t.Fatalf("want Issues, got %T", err)
			}
			if got := mustGet(t, c, "user"); !reflect.DeepEqual(got, orig) {
				t.Fatalf("document changed to %v", got)
			}
		})
	}

	// a path write on a missing document starts from {} and still validates
	if _, err := c.Set(ctx, "fresh", "x", "name"); !errors.Is(err, skemadb.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch for missing age, got %v", err)
	}
	if _, found, _ := c.Get(ctx, "fresh"); found {
		t.Fatal("rejected write must not create the document")
	}
}

func TestCollection_EmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(memory.New("t"), field.Any())
	writes := map[string]func(key string) error{
		"set":    func(k string) error { _, err := c.Set(ctx, k, map[string]any{"x": 1.0}); return err },
		"delete": func(k string) error { _, err := c.Delete(ctx, k); return err },
		"push":   func(k string) error { _, err := c.Push(ctx, k, 1, "xs"); return err },
		"pull":   func(k string) error { _, _, err := c.Pull(ctx, k, 1, "xs"); return err },
		"add":    func(k string) error { _, err := c.Add(ctx, k, 1, "n"); return err },
	}
	for name, write := range writes {
		for _, key := range []string{"", ".x"} {
			err := write(key)
			if !errors.Is(err, skemadb.ErrShapeMismatch) {
				t.Fatalf("%s %q: want ErrShapeMismatch, got %v", name, key, err)
			}
			iss, _ := skemadb.AsIssues(err)
			if len(iss) != 1 || iss[0].Code != skemadb.CodeRequired {
				t.Fatalf("%s %q: issues = %v", name, key, iss)
			}
		}
	}
	if n, err := c.Count(ctx); err != nil || n != 0 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestCollection_NonObjectTargetIssue(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(memory.New("t"), field.Any())
	if _, err := c.Set(ctx, "k", "scalar"); err != nil {
		t.Fatal(err)
	}
	_, err := c.Set(ctx, "k", 1, "a")
	iss, ok := skemadb.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("want one issue, got %v", err)
	}
	if iss[0].Code != skemadb.CodeNotObject || iss[0].Path != "/" {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}

	if _, err := c.Set(ctx, "list", []any{"a"}); err != nil {
		t.Fatal(err)
	}
	_, err = c.Set(ctx, "list", "z", "5")
	iss, _ = skemadb.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != skemadb.CodeIndexRange {
		t.Fatalf("want index_range, got %v", err)
	}
}

func TestCollection_PushPull(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "simon", map[string]any{"name": "Simon", "age": 20, "friends": []any{}}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Push(ctx, "simon", "Kyle", "friends"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := mustGet(t, c, "simon", "friends"); !reflect.DeepEqual(got, []any{"Kyle"}) {
		t.Fatalf("after push: %v", got)
	}
	if _, err := c.Push(ctx, "simon", []string{"Samrid", "Baun"}, "friends"); err != nil {
		t.Fatalf("push slice: %v", err)
	}
	if got := mustGet(t, c, "simon", "friends"); !reflect.DeepEqual(got, []any{"Kyle", "Samrid", "Baun"}) {
		t.Fatalf("after push slice: %v", got)
	}

	_, pulled, err := c.Pull(ctx, "simon", "Kyle", "friends")
	if err != nil || !pulled {
		t.Fatalf("pull: pulled=%v err=%v", pulled, err)
	}
	if got := mustGet(t, c, "simon", "friends"); !reflect.DeepEqual(got, []any{"Samrid", "Baun"}) {
		t.Fatalf("after pull: %v", got)
	}
	if _, _, err := c.Pull(ctx, "simon", []any{"Samrid", "Baun"}, "friends"); err != nil {
		t.Fatalf("pull slice: %v", err)
	}
	if got := mustGet(t, c, "simon", "friends"); !reflect.DeepEqual(got, []any{}) {
		t.Fatalf("after pull slice: %v", got)
	}

	// element type is still checked
	if _, err := c.Push(ctx, "simon", 3, "friends"); !errors.Is(err, skemadb.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}
}

func TestCollection_PushCreatesArray(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "a", map[string]any{"name": "A", "age": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Push(ctx, "a", "x", "friends"); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, "a.friends"); !reflect.DeepEqual(got, []any{"x"}) {
		t.Fatalf("got %v", got)
	}

	if _, err := c.Set(ctx, "b", map[string]any{"name": "B", "age": 1, "friends": nil}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Push(ctx, "b", []any{"y", "z"}, "friends"); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, "b.friends"); !reflect.DeepEqual(got, []any{"y", "z"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCollection_PullOne(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(memory.New("t"), field.Array(field.Number()))
	if _, err := c.Set(ctx, "n", []any{1, 2, 1, 3}); err != nil {
		t.Fatal(err)
	}
	out, pulled, err := c.PullOne(ctx, "n", 1)
	if err != nil || !pulled {
		t.Fatalf("pull one: pulled=%v err=%v", pulled, err)
	}
	if !reflect.DeepEqual(out, []any{2, 1, 3}) {
		t.Fatalf("got %v", out)
	}
	_, pulled, err = c.PullOne(ctx, "n", 9)
	if err != nil || pulled {
		t.Fatalf("no match: pulled=%v err=%v", pulled, err)
	}
	// numbers compare by value across Go kinds
	out, _, err = c.Pull(ctx, "n", float64(1))
	if err != nil || !reflect.DeepEqual(out, []any{2, 3}) {
		t.Fatalf("pull all: %v %v", out, err)
	}
}

func TestCollection_PushPullErrors(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "simon", map[string]any{"name": "Simon", "age": 20}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Push(ctx, "simon", "x", "name"); !errors.Is(err, skemadb.ErrNotAnArray) {
		t.Fatalf("push on string: %v", err)
	}
	if _, _, err := c.Pull(ctx, "simon", "x", "age"); !errors.Is(err, skemadb.ErrNotAnArray) {
		t.Fatalf("pull on number: %v", err)
	}
	if _, err := c.Push(ctx, "simon", nil, "friends"); !errors.Is(err, skemadb.ErrUndefinedOperand) {
		t.Fatalf("push nil: %v", err)
	}
	if _, _, err := c.Pull(ctx, "simon", nil, "friends"); !errors.Is(err, skemadb.ErrUndefinedOperand) {
		t.Fatalf("pull nil: %v", err)
	}

	out, pulled, err := c.Pull(ctx, "ghost", "x", "friends")
	if err != nil || pulled || out != nil {
		t.Fatalf("pull on missing doc: %v %v %v", out, pulled, err)
	}
	_, pulled, err = c.Pull(ctx, "simon", "x", "friends")
	if err != nil || pulled {
		t.Fatalf("pull on missing path: %v %v", pulled, err)
	}
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "user", map[string]any{"name": "U", "age": 1, "isJobless": true}); err != nil {
		t.Fatal(err)
	}

	ok, err := c.Delete(ctx, "user", "isJobless")
	if err != nil || !ok {
		t.Fatalf("partial delete: %v %v", ok, err)
	}
	if _, found, _ := c.Get(ctx, "user", "isJobless"); found {
		t.Fatal("isJobless still present")
	}
	if has, _ := c.Has(ctx, "user", "isJobless"); has {
		t.Fatal("Has reports deleted key")
	}

	ok, err = c.Delete(ctx, "user")
	if err != nil || !ok {
		t.Fatalf("whole delete: %v %v", ok, err)
	}
	if _, found, _ := c.Get(ctx, "user"); found {
		t.Fatal("document still present")
	}
	if ok, _ := c.Delete(ctx, "user"); ok {
		t.Fatal("deleting a missing doc must report false")
	}
	if ok, _ := c.Delete(ctx, "user", "name"); ok {
		t.Fatal("partial delete on a missing doc must report false")
	}
}

func TestCollection_AllSortMax(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	for _, u := range []struct {
		id  string
		age int
	}{{"a", 30}, {"b", 10}, {"c", 20}} {
		if _, err := c.Set(ctx, u.id, map[string]any{"name": u.id, "age": u.age}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := c.All(ctx, skemadb.AllOptions{Sort: &skemadb.Sort{Target: []string{"age"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(docs); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Fatalf("ascending: %v", got)
	}
	docs, err = c.All(ctx, skemadb.AllOptions{Max: 2, Sort: &skemadb.Sort{Target: []string{"age"}, Direction: skemadb.Descending}})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(docs); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("descending max 2: %v", got)
	}
}

func TestCollection_Counters(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(memory.New("t"), field.Object(
		field.Prop("hits", field.Nullable(field.Number())),
		field.Prop("label", field.Nullable(field.String())),
	))
	if _, err := c.Add(ctx, "page", 5, "hits"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Subtract(ctx, "page.hits", 2); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, "page", "hits"); got != float64(3) {
		t.Fatalf("want 3, got %v", got)
	}
	if _, err := c.Set(ctx, "page", "home", "label"); err != nil {
		t.Fatal(err)
	}
	// non-number current values count as 0, then the schema decides
	if _, err := c.Add(ctx, "page", 1, "label"); !errors.Is(err, skemadb.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}

	n, err := c.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}
	if _, err := c.Latency(ctx); err != nil {
		t.Fatalf("latency: %v", err)
	}
	n, err = c.DeleteAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("delete all: %d %v", n, err)
	}
}

func TestCollection_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newUsers(t)
	for _, id := range []string{"b", "a"} {
		if _, err := src.Set(ctx, id, map[string]any{"name": id, "age": 1}); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := src.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Namespace != "users" || !reflect.DeepEqual(ids(snap.Data), []string{"a", "b"}) {
		t.Fatalf("unexpected export: %+v", snap)
	}

	dst := skemadb.New(memory.New("copy"), userSchema())
	n, err := dst.Import(ctx, snap)
	if err != nil || n != 2 {
		t.Fatalf("import: %d %v", n, err)
	}
	if got := mustGet(t, dst, "a", "name"); got != "a" {
		t.Fatalf("got %v", got)
	}

	bad := skemadb.Export{Data: []skemadb.Document{
		{ID: "c", Value: map[string]any{"name": "c", "age": 1}},
		{ID: "d", Value: map[string]any{"name": 4, "age": 1}},
	}}
	_, err = dst.Import(ctx, bad)
	iss, ok := skemadb.AsIssues(err)
	if !ok || iss[0].Path != "/data/1/value/name" {
		t.Fatalf("want issue at /data/1/value/name, got %v", err)
	}
	if _, found, _ := dst.Get(ctx, "c"); found {
		t.Fatal("import must not write anything when one document is invalid")
	}
}

func TestGetAs(t *testing.T) {
	ctx := context.Background()
	c := newUsers(t)
	if _, err := c.Set(ctx, "user", map[string]any{"name": "U", "age": 41, "friends": []any{"x"}}); err != nil {
		t.Fatal(err)
	}
	type user struct {
		Name    string   `json:"name"`
		Age     int      `json:"age"`
		Friends []string `json:"friends"`
	}
	u, found, err := skemadb.GetAs[user](ctx, c, "user")
	if err != nil || !found {
		t.Fatalf("GetAs: %v %v", found, err)
	}
	if u.Name != "U" || u.Age != 41 || len(u.Friends) != 1 {
		t.Fatalf("unexpected %+v", u)
	}
	age, _, err := skemadb.GetAs[int](ctx, c, "user", "age")
	if err != nil || age != 41 {
		t.Fatalf("GetAs int: %d %v", age, err)
	}
	if _, _, err := skemadb.GetAs[int](ctx, c, "user", "name"); err == nil {
		t.Fatal("decoding a string into int must fail")
	}
}

func TestCollection_StoredDataIsValidatedOnRead(t *testing.T) {
	ctx := context.Background()
	st := memory.New("users")
	if err := st.Upsert(ctx, "user", map[string]any{"name": 1}); err != nil {
		t.Fatal(err)
	}
	c := skemadb.New(st, userSchema())
	if _, _, err := c.Get(ctx, "user"); !errors.Is(err, skemadb.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}
}

var errBoom = errors.New("boom")

type failingStore struct{ skemadb.Store }

func (failingStore) FindOne(context.Context, string) (skemadb.Document, bool, error) {
	return skemadb.Document{}, false, errBoom
}

func (failingStore) Upsert(context.Context, string, any) error { return errBoom }

func TestCollection_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(failingStore{memory.New("x")}, field.Any())
	if _, err := c.Set(ctx, "k", 1); !errors.Is(err, errBoom) {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, errBoom) {
		t.Fatalf("get: %v", err)
	}
	if _, err := c.Push(ctx, "k", 1); !errors.Is(err, errBoom) {
		t.Fatalf("push: %v", err)
	}
}

func TestCollection_KeyLocking(t *testing.T) {
	ctx := context.Background()
	c := skemadb.New(memory.New("t"), field.Object(field.Prop("n", field.Nullable(field.Number()))),
		skemadb.WithKeyLocking())

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Add(ctx, "counter", 1, "n"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := mustGet(t, c, "counter", "n"); got != float64(workers) {
		t.Fatalf("want %d, got %v", workers, got)
	}
}

func TestCollection_MetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	var buf bytes.Buffer
	c := newUsers(t, skemadb.WithMetrics(m), skemadb.WithLogger(zerolog.New(&buf)))

	if _, err := c.Set(ctx, "u", map[string]any{"name": "U", "age": 1}); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Set(ctx, "u", true, "name")
	_, _, _ = c.Get(ctx, "nobody")

	if v := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("users", "set", metrics.ResultOK)); v != 1 {
		t.Fatalf("ok sets = %v", v)
	}
	if v := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("users", "set", metrics.ResultInvalid)); v != 1 {
		t.Fatalf("invalid sets = %v", v)
	}
	if v := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("users", "get", metrics.ResultNotFound)); v != 1 {
		t.Fatalf("not found gets = %v", v)
	}
	if v := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("users", "set", skemadb.CodeInvalidType)); v != 1 {
		t.Fatalf("validation failures = %v", v)
	}
	if !strings.Contains(buf.String(), "write rejected") || !strings.Contains(buf.String(), `"namespace":"users"`) {
		t.Fatalf("missing warn log: %s", buf.String())
	}
}

func TestCollection_NamespaceLabel(t *testing.T) {
	c := skemadb.New(memory.New(""), field.Any())
	if c.Namespace() != "default" {
		t.Fatalf("got %q", c.Namespace())
	}
	c = skemadb.New(memory.New("a"), field.Any(), skemadb.WithNamespaceLabel("b"))
	if c.Namespace() != "b" {
		t.Fatalf("got %q", c.Namespace())
	}
}

func TestNew_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	skemadb.New(nil, field.Any())
}

func ids(docs []skemadb.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
