package skemadb

// UnknownPolicy controls how unknown object keys are handled.
type UnknownPolicy int

const (
	UnknownStrict      UnknownPolicy = iota // Reject unknown keys with an error.
	UnknownStrip                            // Drop unknown keys on Create.
	UnknownPassthrough                      // Preserve unknown keys untouched.
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownStrict:
		return "strict"
	case UnknownStrip:
		return "strip"
	case UnknownPassthrough:
		return "passthrough"
	}
	return "unknown"
}

// SortDirection orders All results.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// ParseSortDirection accepts "asc", "ascending", "desc", "descending" (and
// "1"/"-1"). Anything else is Ascending.
func ParseSortDirection(s string) SortDirection {
	switch s {
	case "desc", "descending", "-1":
		return Descending
	}
	return Ascending
}

// Sort selects a value path and direction for ordering documents.
// Target holds path segments inside the document value; an empty Target
// sorts by document ID.
type Sort struct {
	Target    []string
	Direction SortDirection
}

// Document is the persisted unit: a unique ID and a schema-conformant value.
type Document struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// AllOptions configures Collection.All.
type AllOptions struct {
	Max  int   // 0 means unlimited.
	Sort *Sort // nil keeps store order.
}

// Export is a portable snapshot of one namespace.
type Export struct {
	Namespace string     `json:"namespace,omitempty"`
	Data      []Document `json:"data"`
}
