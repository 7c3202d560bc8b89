package field

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads a schema literal written in YAML:
//
//	name: string
//	age: number
//	isJobless: "?boolean"   # nullable
//	friends: [string]
//	aliases: "?[string]"    # nullable array
//	address:
//	  city: string
//	notes: ~                # nullable any
//
// Scalars string/number/boolean map to the builtins, "any" to Any, a leading
// "?" wraps the rest in Nullable, "[x]" inside a quoted scalar is ListOf x,
// null maps to the nil descriptor, one-element sequences to ListOf and mappings to Shape in document order. Other scalars
// become Opaque.
func ParseYAML(data []byte) (Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("field: parse yaml schema: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return fromNode(doc.Content[0])
}

// LoadYAML reads and parses a YAML schema file.
func LoadYAML(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("field: read schema %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ResolveYAML is ParseYAML followed by Resolve, recovering Resolve panics
// into errors.
func ResolveYAML(data []byte) (f *Field, err error) {
	d, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("field: resolve yaml schema: %v", r)
		}
	}()
	return Resolve(d), nil
}

func fromNode(n *yaml.Node) (Descriptor, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		return fromScalar(n)
	case yaml.SequenceNode:
		switch len(n.Content) {
		case 0:
			return ListOf{}, nil
		case 1:
			elem, err := fromNode(n.Content[0])
			if err != nil {
				return nil, err
			}
			return ListOf{Elem: elem}, nil
		}
		return nil, fmt.Errorf("field: line %d: array shorthand takes exactly one element, got %d", n.Line, len(n.Content))
	case yaml.MappingNode:
		out := make(Shape, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode || k.Value == "" {
				return nil, fmt.Errorf("field: line %d: object keys must be non-empty scalars", k.Line)
			}
			d, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: k.Value, Desc: d})
		}
		return out, nil
	}
	return nil, fmt.Errorf("field: line %d: unsupported yaml node", n.Line)
}

func fromScalar(n *yaml.Node) (Descriptor, error) {
	if n.Tag == "!!null" {
		return nil, nil
	}
	v := strings.TrimSpace(n.Value)
	if rest, ok := strings.CutPrefix(v, "?"); ok {
		inner, err := fromScalar(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rest, Line: n.Line})
		if err != nil {
			return nil, err
		}
		return Nullable(Resolve(inner)), nil
	}
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		inner, err := fromScalar(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v[1 : len(v)-1], Line: n.Line})
		if err != nil {
			return nil, err
		}
		return ListOf{Elem: inner}, nil
	}
	switch strings.ToLower(v) {
	case "string":
		return StringType, nil
	case "number":
		return NumberType, nil
	case "boolean", "bool":
		return BooleanType, nil
	case "any":
		return Any(), nil
	case "":
		return nil, nil
	}
	return Opaque{Value: n.Value}, nil
}
