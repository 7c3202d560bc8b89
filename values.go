package skemadb

import (
	"reflect"
	"sort"
	"strings"

	"github.com/reoring/skemadb/keypath"
)

// Clone deep-copies a JSON-shaped value. Maps with string keys become
// map[string]any and slices become []any, so the result is always mutable by
// keypath. Scalars are returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out[it.Key().String()] = Clone(it.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return []any{}
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Clone(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Clone(rv.Elem().Interface())
	}
	return v
}

// AsNumber reports whether v holds a Go numeric kind and returns it as float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// IsSlice reports whether v is a slice or array (excluding []byte-like
// strings, which never appear in JSON-shaped values).
func IsSlice(v any) bool {
	if _, ok := v.([]any); ok {
		return true
	}
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Equal compares JSON-shaped values structurally. Numbers compare by value
// across Go numeric kinds, so int(1) equals float64(1) read back from a store.
func Equal(a, b any) bool {
	if na, ok := AsNumber(a); ok {
		nb, ok := AsNumber(b)
		return ok && na == nb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	}
	ca, cb := Clone(a), Clone(b)
	switch ta := ca.(type) {
	case map[string]any:
		tb, ok := cb.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := cb.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// typeRank orders values of different kinds for sorting: null, numbers,
// strings, objects, arrays, booleans (the order document stores use).
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := AsNumber(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bool:
		return 5
	}
	switch Clone(v).(type) {
	case map[string]any:
		return 3
	case []any:
		return 4
	}
	return 6
}

// Compare returns -1, 0 or 1 ordering a against b. Objects and arrays of the
// same kind compare equal.
func Compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		na, _ := AsNumber(a)
		nb, _ := AsNumber(b)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 5:
		ba, bb := a.(bool), b.(bool)
		if ba != bb {
			if !ba {
				return -1
			}
			return 1
		}
	}
	return 0
}

// SortDocuments orders docs in place by the value at s.Target (or by ID when
// Target is empty). Missing values sort as null. The sort is stable.
func SortDocuments(docs []Document, s *Sort) {
	if s == nil {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		var c int
		if len(s.Target) == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		} else {
			vi, _ := keypath.GetSegments(docs[i].Value, s.Target)
			vj, _ := keypath.GetSegments(docs[j].Value, s.Target)
			c = Compare(vi, vj)
		}
		if s.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
}

// kindName names the JSON kind of v for issue parameters.
func kindName(v any) string {
	switch typeRank(v) {
	case 0:
		return "null"
	case 1:
		return "number"
	case 2:
		return "string"
	case 3:
		return "object"
	case 4:
		return "array"
	case 5:
		return "boolean"
	}
	return reflect.TypeOf(v).String()
}
