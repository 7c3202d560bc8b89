package skemadb

import (
	json "github.com/goccy/go-json"

	"github.com/reoring/skemadb/i18n"
	"github.com/reoring/skemadb/internal/jsonguard"
)

// maxJSONDepth bounds nesting accepted by DecodeJSON.
const maxJSONDepth = 256

// DetectDuplicateKeys reports duplicate object keys (and syntax errors) in a
// JSON document. It returns nil when data is clean.
func DetectDuplicateKeys(data []byte) Issues {
	var iss Issues
	for _, it := range jsonguard.Scan(data, jsonguard.Options{MaxDepth: maxJSONDepth, MaxIssues: 20}) {
		iss = AppendIssues(iss, Issue{
			Path:    it.Path,
			Code:    it.Code,
			Message: i18n.T(it.Code, nil),
			Hint:    it.Message,
		})
	}
	return iss
}

// DecodeJSON decodes one JSON value into the JSON-shaped Go domain
// (map[string]any, []any, float64, string, bool, nil). Duplicate object keys
// are rejected instead of collapsing to the last one.
func DecodeJSON(data []byte) (any, error) {
	if iss := DetectDuplicateKeys(data); len(iss) > 0 {
		return nil, iss
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, Issues{{Path: "/", Code: CodeParseError, Message: i18n.T(CodeParseError, nil), Hint: err.Error(), Cause: err}}
	}
	return v, nil
}
