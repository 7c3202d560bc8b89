package skemadb

import (
	"context"
	"time"

	"github.com/reoring/skemadb/i18n"
	"github.com/reoring/skemadb/keypath"
)

// Push appends value to the array stored at key (and path) and returns the
// new whole document value.
//
// When nothing (or nil) is stored there yet, a slice operand is stored as is
// and any other operand becomes a one-element array. A slice operand is
// concatenated onto an existing array. A present non-array value fails with
// a not_array issue.
func (c *Collection) Push(ctx context.Context, key string, value any, path ...string) (out any, err error) {
	defer c.observe("push", time.Now(), &err)
	if value == nil {
		return nil, ErrUndefinedOperand
	}
	kp, err := c.writeTarget("push", key, path)
	if err != nil {
		return nil, err
	}
	root, rem := kp.Root, kp.Remainder
	defer c.lock(root)()

	doc, found, err := c.load(ctx, root)
	if err != nil {
		return nil, err
	}
	var cur any
	if found {
		cur, _ = keypath.Get(doc, rem)
	}

	var next []any
	switch {
	case cur == nil:
		if IsSlice(value) {
			next = Clone(value).([]any)
		} else {
			next = []any{Clone(value)}
		}
	case IsSlice(cur):
		next = Clone(cur).([]any)
		if IsSlice(value) {
			next = append(next, Clone(value).([]any)...)
		} else {
			next = append(next, Clone(value))
		}
	default:
		return nil, c.reject("push", root, notArray(rem, cur))
	}
	return c.apply(ctx, "push", root, rem, doc, found, next)
}

// Pull removes every element of the array at key (and path) equal to value,
// or contained in value when value is a slice. It returns the new whole
// document value. When nothing is stored at the location it returns
// (nil, false, nil) without writing.
func (c *Collection) Pull(ctx context.Context, key string, value any, path ...string) (any, bool, error) {
	return c.pull(ctx, "pull", key, value, true, path)
}

// PullOne is Pull restricted to the first matching element. It reports false
// and writes nothing when no element matched.
func (c *Collection) PullOne(ctx context.Context, key string, value any, path ...string) (any, bool, error) {
	return c.pull(ctx, "pull_one", key, value, false, path)
}

func (c *Collection) pull(ctx context.Context, op, key string, value any, multiple bool, path []string) (out any, pulled bool, err error) {
	defer c.observe(op, time.Now(), &err)
	if value == nil {
		return nil, false, ErrUndefinedOperand
	}
	kp, err := c.writeTarget(op, key, path)
	if err != nil {
		return nil, false, err
	}
	root, rem := kp.Root, kp.Remainder
	defer c.lock(root)()

	doc, found, err := c.load(ctx, root)
	if err != nil || !found {
		return nil, false, err
	}
	cur, _ := keypath.Get(doc, rem)
	if cur == nil {
		return nil, false, nil
	}
	if !IsSlice(cur) {
		return nil, false, c.reject(op, root, notArray(rem, cur))
	}

	elems := Clone(cur).([]any)
	var match func(any) bool
	if IsSlice(value) {
		drop := Clone(value).([]any)
		match = func(e any) bool {
			for _, d := range drop {
				if Equal(e, d) {
					return true
				}
			}
			return false
		}
	} else {
		match = func(e any) bool { return Equal(e, value) }
	}

	next := make([]any, 0, len(elems))
	removed := 0
	for _, e := range elems {
		if match(e) && (multiple || removed == 0) {
			removed++
			continue
		}
		next = append(next, e)
	}
	if !multiple && removed == 0 {
		return nil, false, nil
	}

	out, err = c.apply(ctx, op, root, rem, doc, found, next)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func notArray(rem string, got any) error {
	it := PathFromSegments(keypath.Segments(rem)).Issue(CodeNotArray, i18n.T(CodeNotArray, nil), "got", kindName(got))
	it.Hint = "push and pull need an array"
	return Issues{it}
}
