package keypath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrNonObject reports a mutation through a value that is not a map or slice.
	ErrNonObject = errors.New("target must be an object")
	// ErrIndexRange reports a slice index that is not an existing element (or
	// the append position for Set).
	ErrIndexRange = errors.New("index out of range")
)

// PathError describes where a mutation failed.
type PathError struct {
	Op       string   // "set" or "unset"
	Segments []string // raw segments up to and including the failing container
	Got      string   // Go kind of the offending value
	Err      error
}

func (e *PathError) Error() string {
	at := FromSegments(e.Segments)
	if at == "" {
		at = "<root>"
	}
	return fmt.Sprintf("keypath %s %s: %v (got %s)", e.Op, at, e.Err, e.Got)
}

func (e *PathError) Unwrap() error { return e.Err }

// Get follows the escaped remainder through holder. An empty remainder yields
// holder itself. found is false when any segment is missing.
func Get(holder any, remainder string) (any, bool) {
	if remainder == "" {
		return holder, true
	}
	return GetSegments(holder, Segments(remainder))
}

// GetSegments is Get over pre-split raw segments.
func GetSegments(holder any, segs []string) (any, bool) {
	cur := holder
	for _, seg := range segs {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(cur any, seg string) (any, bool) {
	switch c := cur.(type) {
	case map[string]any:
		v, ok := c[seg]
		return v, ok
	case []any:
		i, ok := index(seg, len(c))
		if !ok {
			return nil, false
		}
		return c[i], true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := index(seg, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// Set assigns value at the escaped remainder inside holder and returns the
// updated holder. An empty remainder returns value. holder must be a
// map[string]any or []any; missing or nil intermediates become empty maps.
// Containers are mutated in place.
func Set(holder any, remainder string, value any) (any, error) {
	if remainder == "" {
		return value, nil
	}
	segs := Segments(remainder)
	return setIn(holder, segs, 0, value)
}

func setIn(cur any, segs []string, depth int, value any) (any, error) {
	seg := segs[depth]
	last := depth == len(segs)-1
	switch c := cur.(type) {
	case map[string]any:
		if last {
			c[seg] = value
			return c, nil
		}
		next := c[seg]
		if next == nil {
			next = map[string]any{}
		}
		upd, err := setIn(next, segs, depth+1, value)
		if err != nil {
			return nil, err
		}
		c[seg] = upd
		return c, nil
	case []any:
		i, ok := index(seg, len(c)+1)
		if !ok {
			return nil, &PathError{Op: "set", Segments: segs[:depth+1], Got: "array", Err: ErrIndexRange}
		}
		if i == len(c) {
			c = append(c, nil)
		}
		if last {
			c[i] = value
			return c, nil
		}
		next := c[i]
		if next == nil {
			next = map[string]any{}
		}
		upd, err := setIn(next, segs, depth+1, value)
		if err != nil {
			return nil, err
		}
		c[i] = upd
		return c, nil
	}
	return nil, &PathError{Op: "set", Segments: segs[:depth], Got: kindOf(cur), Err: ErrNonObject}
}

// Unset removes the property (or slice element) at the escaped remainder and
// returns the updated holder. A missing path is a no-op. An empty remainder
// returns holder unchanged: removing the whole value is the caller's job.
func Unset(holder any, remainder string) (any, error) {
	if remainder == "" {
		return holder, nil
	}
	switch holder.(type) {
	case map[string]any, []any:
	default:
		return nil, &PathError{Op: "unset", Got: kindOf(holder), Err: ErrNonObject}
	}
	return unsetIn(holder, Segments(remainder), 0), nil
}

func unsetIn(cur any, segs []string, depth int) any {
	seg := segs[depth]
	last := depth == len(segs)-1
	switch c := cur.(type) {
	case map[string]any:
		if last {
			delete(c, seg)
			return c
		}
		if next, ok := c[seg]; ok {
			c[seg] = unsetIn(next, segs, depth+1)
		}
		return c
	case []any:
		i, ok := index(seg, len(c))
		if !ok {
			return c
		}
		if last {
			return append(c[:i:i], c[i+1:]...)
		}
		c[i] = unsetIn(c[i], segs, depth+1)
		return c
	}
	return cur
}

// index parses seg as a non-negative decimal index below n.
func index(seg string, n int) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') || strings.ContainsAny(seg, "+-") {
		return 0, false
	}
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func kindOf(v any) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).Kind().String()
}
