package skemadb

import "github.com/reoring/skemadb/i18n"

// IssueAt creates an Issue at the given path with provided code, message and params map.
// This is a convenience helper to improve readability at call sites with many parameters.
func IssueAt(p PathRef, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: msg, Params: params}
}

// SingleIssue returns Issues holding one translated issue at path.
func SingleIssue(path, code, hint string) Issues {
	return Issues{{Path: path, Code: code, Message: i18n.T(code, nil), Hint: hint}}
}
