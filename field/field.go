package field

import (
	"fmt"
	"strings"

	skemadb "github.com/reoring/skemadb"
)

// Kind tags the closed set of field variants.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindNullable
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindNullable:
		return "nullable"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Field is an immutable validator node. The zero value is not usable; build
// fields with the constructors in this package. Builder-style methods return
// modified copies and never mutate the receiver.
type Field struct {
	kind Kind

	// Nullable, Array
	elem *Field

	// Object
	props   []Property
	index   map[string]int
	unknown skemadb.UnknownPolicy

	// Number
	allowNaN bool

	def    any
	hasDef bool
}

// Property is a named child of an Object field.
type Property struct {
	Key   string
	Field *Field
}

// Prop pairs a key with its field for Object.
func Prop(key string, f *Field) Property { return Property{Key: key, Field: f} }

var _ skemadb.Schema = (*Field)(nil)

// Any accepts every value, including absence.
func Any() *Field { return &Field{kind: KindAny} }

// String accepts Go strings.
func String() *Field { return &Field{kind: KindString} }

// Number accepts every Go integer and float kind. NaN and ±Inf are rejected
// unless AllowNaN is set because JSON stores cannot represent them.
func Number() *Field { return &Field{kind: KindNumber} }

// Boolean accepts Go bools.
func Boolean() *Field { return &Field{kind: KindBoolean} }

// Nullable accepts nil, absence, or anything inner accepts. A nil inner is Any.
func Nullable(inner *Field) *Field {
	if inner == nil {
		inner = Any()
	}
	return &Field{kind: KindNullable, elem: inner, def: inner.def, hasDef: inner.hasDef}
}

// Array accepts slices whose elements all satisfy elem. A nil elem is Any.
func Array(elem *Field) *Field {
	if elem == nil {
		elem = Any()
	}
	return &Field{kind: KindArray, elem: elem}
}

// NewObject builds a closed (UnknownStrict) object field. Keys must be
// non-empty and unique; properties keep their declared order.
func NewObject(props ...Property) (*Field, error) {
	f := &Field{kind: KindObject, index: make(map[string]int, len(props))}
	for _, p := range props {
		if p.Key == "" {
			return nil, fmt.Errorf("field: object property with empty key")
		}
		if _, dup := f.index[p.Key]; dup {
			return nil, fmt.Errorf("field: duplicate object property %q", p.Key)
		}
		pf := p.Field
		if pf == nil {
			pf = Nullable(Any())
		}
		f.index[p.Key] = len(f.props)
		f.props = append(f.props, Property{Key: p.Key, Field: pf})
	}
	return f, nil
}

// Object is NewObject that panics on invalid declarations. Use it for
// schemas fixed at compile time.
func Object(props ...Property) *Field {
	f, err := NewObject(props...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Field) clone() *Field {
	c := *f
	return &c
}

// WithDefault returns a copy carrying v as its default. Defaults are reported
// by Default and exported to JSON Schema; they are never applied implicitly.
func (f *Field) WithDefault(v any) *Field {
	c := f.clone()
	c.def = v
	c.hasDef = true
	return c
}

// AllowNaN returns a Number copy that accepts NaN and ±Inf. It panics on
// other kinds.
func (f *Field) AllowNaN() *Field {
	if f.kind != KindNumber {
		panic("field: AllowNaN on " + f.kind.String())
	}
	c := f.clone()
	c.allowNaN = true
	return c
}

// Unknown returns an Object copy with the given unknown-key policy. It panics
// on other kinds.
func (f *Field) Unknown(p skemadb.UnknownPolicy) *Field {
	if f.kind != KindObject {
		panic("field: Unknown on " + f.kind.String())
	}
	c := f.clone()
	c.unknown = p
	return c
}

// Strict is Unknown(skemadb.UnknownStrict).
func (f *Field) Strict() *Field { return f.Unknown(skemadb.UnknownStrict) }

// Strip is Unknown(skemadb.UnknownStrip).
func (f *Field) Strip() *Field { return f.Unknown(skemadb.UnknownStrip) }

// Passthrough is Unknown(skemadb.UnknownPassthrough).
func (f *Field) Passthrough() *Field { return f.Unknown(skemadb.UnknownPassthrough) }

// Kind returns the variant tag.
func (f *Field) Kind() Kind { return f.kind }

// Elem returns the inner field of Nullable and Array, nil otherwise.
func (f *Field) Elem() *Field { return f.elem }

// Props returns a copy of the declared Object properties in order.
func (f *Field) Props() []Property { return append([]Property(nil), f.props...) }

// Prop looks up a declared Object property.
func (f *Field) Prop(key string) (*Field, bool) {
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.props[i].Field, true
}

// UnknownPolicy reports the Object unknown-key policy.
func (f *Field) UnknownPolicy() skemadb.UnknownPolicy { return f.unknown }

// Default returns the configured default value.
func (f *Field) Default() (any, bool) { return f.def, f.hasDef }

// At resolves the field describing the value at raw path segments, following
// Object properties, Array elements and Nullable wrappers. Paths that leave
// the declared tree resolve to Any under Passthrough objects and Any fields.
func (f *Field) At(segs []string) (*Field, bool) {
	cur := f
	for _, seg := range segs {
		for cur.kind == KindNullable {
			cur = cur.elem
		}
		switch cur.kind {
		case KindAny:
			return cur, true
		case KindObject:
			next, ok := cur.Prop(seg)
			if !ok {
				if cur.unknown == skemadb.UnknownPassthrough {
					return Any(), true
				}
				return nil, false
			}
			cur = next
		case KindArray:
			cur = cur.elem
		default:
			return nil, false
		}
	}
	return cur, true
}

// String renders a compact description such as
// "object{name: string, tags: array<string>}".
func (f *Field) String() string {
	switch f.kind {
	case KindNullable:
		return "nullable<" + f.elem.String() + ">"
	case KindArray:
		return "array<" + f.elem.String() + ">"
	case KindObject:
		parts := make([]string, len(f.props))
		for i, p := range f.props {
			parts[i] = p.Key + ": " + p.Field.String()
		}
		return "object{" + strings.Join(parts, ", ") + "}"
	}
	return f.kind.String()
}

// optional reports whether absence of a property holding f is acceptable.
func (f *Field) optional() bool {
	return f.kind == KindAny || f.kind == KindNullable
}

// strips reports whether Create may rewrite values under f.
func (f *Field) strips() bool {
	switch f.kind {
	case KindNullable, KindArray:
		return f.elem.strips()
	case KindObject:
		if f.unknown == skemadb.UnknownStrip {
			return true
		}
		for _, p := range f.props {
			if p.Field.strips() {
				return true
			}
		}
	}
	return false
}
