package field

// Descriptor is schema shorthand accepted by Resolve. The set is sealed:
// *Field, Builtin, ListOf, Shape and Opaque are the only implementations, and
// a nil Descriptor is meaningful (see Resolve).
type Descriptor interface {
	isDescriptor()
}

// Builtin names the primitive "constructors" usable as shorthand.
type Builtin int

const (
	StringType Builtin = iota + 1
	NumberType
	BooleanType
)

// ListOf is the one-element array literal shorthand [Elem].
type ListOf struct {
	Elem Descriptor
}

// Entry is one key of a Shape.
type Entry struct {
	Key  string
	Desc Descriptor
}

// Shape is a plain object literal with ordered keys.
type Shape []Entry

// Opaque stands for any other literal; it resolves to Any.
type Opaque struct {
	Value any
}

func (*Field) isDescriptor()  {}
func (Builtin) isDescriptor() {}
func (ListOf) isDescriptor()  {}
func (Shape) isDescriptor()   {}
func (Opaque) isDescriptor()  {}

// Resolve turns a descriptor into a canonical field tree:
//
//	nil                     -> Nullable(Any)
//	*Field                  -> itself
//	StringType/NumberType/BooleanType -> String/Number/Boolean
//	ListOf{X}               -> Array(Resolve(X))
//	Shape{{k, X}, ...}      -> Object(k: Resolve(X), ...)
//	Opaque and anything else -> Any
//
// Resolve panics when a Shape repeats a key or uses an empty key.
func Resolve(d Descriptor) *Field {
	switch t := d.(type) {
	case nil:
		return Nullable(Any())
	case *Field:
		if t == nil {
			return Nullable(Any())
		}
		return t
	case Builtin:
		switch t {
		case StringType:
			return String()
		case NumberType:
			return Number()
		case BooleanType:
			return Boolean()
		}
	case ListOf:
		return Array(Resolve(t.Elem))
	case Shape:
		props := make([]Property, len(t))
		for i, e := range t {
			props[i] = Prop(e.Key, Resolve(e.Desc))
		}
		return Object(props...)
	case Opaque:
	}
	return Any()
}

// MustShape is a convenience for building Shape literals from alternating
// key/descriptor arguments: MustShape("name", StringType, "age", NumberType).
// It panics on an odd argument count or a non-string key.
func MustShape(kv ...any) Shape {
	if len(kv)%2 != 0 {
		panic("field: MustShape needs key/descriptor pairs")
	}
	out := make(Shape, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("field: MustShape key must be a string")
		}
		var d Descriptor
		if kv[i+1] != nil {
			if dd, ok := kv[i+1].(Descriptor); ok {
				d = dd
			} else {
				d = Opaque{Value: kv[i+1]}
			}
		}
		out = append(out, Entry{Key: k, Desc: d})
	}
	return out
}
