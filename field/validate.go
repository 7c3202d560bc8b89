package field

import (
	"context"
	"math"
	"reflect"
	"sort"

	skemadb "github.com/reoring/skemadb"
	"github.com/reoring/skemadb/i18n"
)

// Validate checks v against the field tree. It returns skemadb.Issues whose
// paths are JSON Pointers relative to v. Validation stops at the first issue
// unless the context disables fail-fast (skemadb.WithFailFast).
func (f *Field) Validate(ctx context.Context, v any) error {
	if iss := f.check(ctx, v, true, skemadb.RootPath()); len(iss) > 0 {
		return iss
	}
	return nil
}

// Create validates v and returns it unchanged, except that objects under the
// Strip policy come back as copies without their unknown keys.
func (f *Field) Create(ctx context.Context, v any) (any, error) {
	if err := f.Validate(ctx, v); err != nil {
		return nil, err
	}
	if !f.strips() {
		return v, nil
	}
	return f.strip(skemadb.Clone(v)), nil
}

func typeIssue(p skemadb.PathRef, expected string, got any) skemadb.Issue {
	it := p.Issue(skemadb.CodeInvalidType, i18n.T(skemadb.CodeInvalidType, map[string]string{"expected": expected}),
		"expected", expected, "got", kindName(got))
	it.Hint = "expected " + expected
	return it
}

func (f *Field) check(ctx context.Context, v any, present bool, p skemadb.PathRef) skemadb.Issues {
	switch f.kind {
	case KindAny:
		return nil
	case KindNullable:
		if !present || v == nil {
			return nil
		}
		return f.elem.check(ctx, v, true, p)
	}
	if !present {
		it := p.Issue(skemadb.CodeRequired, i18n.T(skemadb.CodeRequired, nil), "expected", f.kind.String())
		it.Hint = "required property missing"
		return skemadb.Issues{it}
	}
	switch f.kind {
	case KindString:
		if _, ok := v.(string); !ok {
			return skemadb.Issues{typeIssue(p, "string", v)}
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return skemadb.Issues{typeIssue(p, "boolean", v)}
		}
	case KindNumber:
		n, ok := skemadb.AsNumber(v)
		if !ok {
			return skemadb.Issues{typeIssue(p, "number", v)}
		}
		if !f.allowNaN && (math.IsNaN(n) || math.IsInf(n, 0)) {
			return skemadb.Issues{typeIssue(p, "finite number", v)}
		}
	case KindArray:
		return f.checkArray(ctx, v, p)
	case KindObject:
		return f.checkObject(ctx, v, p)
	}
	return nil
}

func (f *Field) checkArray(ctx context.Context, v any, p skemadb.PathRef) skemadb.Issues {
	if !skemadb.IsSlice(v) {
		return skemadb.Issues{typeIssue(p, "array", v)}
	}
	arr, ok := v.([]any)
	if !ok {
		arr, _ = skemadb.Clone(v).([]any)
	}
	var iss skemadb.Issues
	for i, e := range arr {
		if child := f.elem.check(ctx, e, true, p.Index(i)); len(child) > 0 {
			iss = skemadb.AppendIssues(iss, child...)
			if skemadb.IsFailFast(ctx) {
				return iss
			}
		}
	}
	return iss
}

func (f *Field) checkObject(ctx context.Context, v any, p skemadb.PathRef) skemadb.Issues {
	m, ok := asObject(v)
	if !ok {
		return skemadb.Issues{typeIssue(p, "object", v)}
	}
	var iss skemadb.Issues
	// declared keys in declaration order
	for _, prop := range f.props {
		val, present := m[prop.Key]
		if child := prop.Field.check(ctx, val, present, p.Field(prop.Key)); len(child) > 0 {
			iss = skemadb.AppendIssues(iss, child...)
			if skemadb.IsFailFast(ctx) {
				return iss
			}
		}
	}
	if f.unknown != skemadb.UnknownStrict {
		return iss
	}
	// unknown keys in key-sorted order
	for _, k := range f.unknownKeys(m) {
		it := p.Field(k).Issue(skemadb.CodeUnknownKey, i18n.T(skemadb.CodeUnknownKey, nil), "key", k)
		iss = skemadb.AppendIssues(iss, it)
		if skemadb.IsFailFast(ctx) {
			return iss
		}
	}
	return iss
}

func (f *Field) unknownKeys(m map[string]any) []string {
	var uks []string
	for k := range m {
		if _, known := f.index[k]; !known {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	return uks
}

// strip removes unknown keys below Strip objects. v must already be a clone.
func (f *Field) strip(v any) any {
	switch f.kind {
	case KindNullable:
		if v == nil {
			return nil
		}
		return f.elem.strip(v)
	case KindArray:
		arr, ok := v.([]any)
		if !ok {
			return v
		}
		for i := range arr {
			arr[i] = f.elem.strip(arr[i])
		}
		return arr
	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		if f.unknown == skemadb.UnknownStrip {
			for _, k := range f.unknownKeys(m) {
				delete(m, k)
			}
		}
		for _, prop := range f.props {
			if val, ok := m[prop.Key]; ok {
				m[prop.Key] = prop.Field.strip(val)
			}
		}
		return m
	}
	return v
}

func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m, ok := skemadb.Clone(v).(map[string]any)
	return m, ok
}

func kindName(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := skemadb.AsNumber(v); ok {
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if skemadb.IsSlice(v) {
		return "array"
	}
	if _, ok := asObject(v); ok {
		return "object"
	}
	return reflect.TypeOf(v).String()
}
