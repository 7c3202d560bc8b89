package skemadb

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType = "invalid_type"
	CodeRequired    = "required"
	CodeUnknownKey  = "unknown_key"
	// Path-scoped mutation failures
	CodeNotObject = "not_object"
	CodeNotArray  = "not_array"
	// A numeric path segment past the end of an array
	CodeIndexRange = "index_range"
	// Stored data that could not be decoded or re-read
	CodeParseError   = "parse_error"
	CodeDuplicateKey = "duplicate_key"
)

// Sentinel errors for the failure taxonomy. Issues match them through
// errors.Is according to their codes.
var (
	// ErrShapeMismatch reports a value that fails a leaf, nullable, array or
	// object check (invalid_type, required).
	ErrShapeMismatch = errors.New("skemadb: shape mismatch")
	// ErrUnknownField reports an object key absent from its object schema.
	ErrUnknownField = errors.New("skemadb: unknown field")
	// ErrNonObjectTarget reports a path-scoped operation against a value that
	// is not object-shaped.
	ErrNonObjectTarget = errors.New("skemadb: target must be an object")
	// ErrNotAnArray reports push/pull against a stored value that is not an array.
	ErrNotAnArray = errors.New("skemadb: target is not an array")
	// ErrUndefinedOperand reports push/pull invoked with a nil operand.
	ErrUndefinedOperand = errors.New("skemadb: operand must not be nil")
	// ErrDuplicateKey reports JSON input repeating a key within one object.
	ErrDuplicateKey = errors.New("skemadb: duplicate key")
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /friends/2).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected type names, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"expected":"string"})
	// for i18n and logging.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Is maps issue codes onto the sentinel errors so callers can branch with
// errors.Is without walking the slice.
func (iss Issues) Is(target error) bool {
	for _, it := range iss {
		if codeSentinel(it.Code) == target {
			return true
		}
	}
	return false
}

// Unwrap exposes issue causes (for example a store decode error).
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

func codeSentinel(code string) error {
	switch code {
	case CodeInvalidType, CodeRequired:
		return ErrShapeMismatch
	case CodeUnknownKey:
		return ErrUnknownField
	case CodeNotObject:
		return ErrNonObjectTarget
	case CodeNotArray:
		return ErrNotAnArray
	case CodeDuplicateKey:
		return ErrDuplicateKey
	}
	return nil
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// RebaseIssues prefixes every issue path with base, which must itself be a
// JSON Pointer ("/items/2").
func RebaseIssues(base string, iss Issues) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		if p == "" || p == "/" {
			p = base
		} else if p[0] == '/' {
			p = base + p
		} else {
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}
