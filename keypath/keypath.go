// Package keypath parses dotted keys ("user.address.city") and reads or
// mutates nested JSON-shaped values (map[string]any / []any) along them.
//
// A key splits into a root (the document ID) and a remainder addressing a
// location inside the document value. A backslash escapes a literal dot or
// backslash inside a segment: `a\.b.c` has segments "a.b" and "c".
package keypath

import (
	"strings"
)

// KeyPath is the derived form of a dotted key.
type KeyPath struct {
	Root      string // unescaped document identifier
	Remainder string // escaped dotted path inside the value; empty for the whole value
}

// IsRoot reports whether the key addresses the whole document value.
func (k KeyPath) IsRoot() bool { return k.Remainder == "" }

// String re-assembles the key in its escaped dotted form.
func (k KeyPath) String() string {
	return Join(Escape(k.Root), k.Remainder)
}

// Parse splits key on the first unescaped dot.
func Parse(key string) KeyPath {
	i := firstDot(key)
	if i < 0 {
		return KeyPath{Root: unescape(key)}
	}
	return KeyPath{Root: unescape(key[:i]), Remainder: key[i+1:]}
}

// Segments splits an escaped remainder into raw segments. An empty remainder
// has no segments.
func Segments(remainder string) []string {
	if remainder == "" {
		return nil
	}
	var (
		out []string
		b   strings.Builder
	)
	for i := 0; i < len(remainder); i++ {
		c := remainder[i]
		switch {
		case c == '\\' && i+1 < len(remainder) && (remainder[i+1] == '.' || remainder[i+1] == '\\'):
			b.WriteByte(remainder[i+1])
			i++
		case c == '.':
			out = append(out, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	return append(out, b.String())
}

// Escape quotes dots and backslashes so seg survives Segments as one segment.
func Escape(seg string) string {
	if !strings.ContainsAny(seg, `.\`) {
		return seg
	}
	r := strings.NewReplacer(`\`, `\\`, `.`, `\.`)
	return r.Replace(seg)
}

// Join concatenates escaped remainders with dots, skipping empty parts.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

// FromSegments builds an escaped remainder from raw segments.
func FromSegments(segs []string) string {
	esc := make([]string, len(segs))
	for i, s := range segs {
		esc[i] = Escape(s)
	}
	return strings.Join(esc, ".")
}

func firstDot(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '.':
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	segs := Segments(s)
	if len(segs) == 1 {
		return segs[0]
	}
	// an unescaped dot cannot be present here; keep the input as-is
	return s
}
