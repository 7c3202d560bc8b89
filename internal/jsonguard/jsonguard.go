// Package jsonguard scans raw JSON for problems that decoding into Go maps
// hides: duplicate object keys (the last one silently wins) and excessive
// nesting.
package jsonguard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Issue codes produced by Scan.
const (
	CodeDuplicateKey = "duplicate_key"
	CodeParseError   = "parse_error"
	CodeTruncated    = "truncated"
)

// Options bounds a scan. Zero values mean unlimited.
type Options struct {
	MaxDepth  int
	MaxIssues int
}

// Issue is one finding, located by JSON Pointer.
type Issue struct {
	Code    string
	Path    string
	Message string
}

type frame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	seg          string // segment of the child being read
	index        int
}

// Scan walks every token of data. Syntax errors end the scan with a
// parse_error issue; they are not returned as errors.
func Scan(data []byte, opt Options) []Issue {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		issues []Issue
		stack  []frame
	)
	add := func(it Issue) bool {
		issues = append(issues, it)
		if opt.MaxIssues > 0 && len(issues) >= opt.MaxIssues {
			issues = append(issues, Issue{Code: CodeTruncated, Path: "/", Message: "max issues reached"})
			return false
		}
		return true
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(stack) > 0 {
				add(Issue{Code: CodeParseError, Path: pointer(stack, nil), Message: "unexpected end of JSON input"})
			}
			return issues
		}
		if err != nil {
			add(Issue{Code: CodeParseError, Path: pointer(stack, nil), Message: err.Error()})
			return issues
		}

		if s, ok := tok.(string); ok && len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.object && top.expectingKey {
				if _, dup := top.keys[s]; dup {
					if !add(Issue{Code: CodeDuplicateKey, Path: pointer(stack, &s), Message: "key '" + s + "' duplicated"}) {
						return issues
					}
				}
				top.keys[s] = struct{}{}
				top.seg = s
				top.expectingKey = false
				continue
			}
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			continue
		}

		// A value starts here.
		if len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.object {
				top.expectingKey = true
			} else {
				top.seg = strconv.Itoa(top.index)
				top.index++
			}
		}
		if d, ok := tok.(json.Delim); ok {
			if opt.MaxDepth > 0 && len(stack) >= opt.MaxDepth {
				add(Issue{Code: CodeParseError, Path: pointer(stack, nil), Message: "max depth exceeded"})
				return issues
			}
			f := frame{object: d == '{'}
			if f.object {
				f.keys = make(map[string]struct{})
				f.expectingKey = true
			}
			stack = append(stack, f)
		}
	}
}

// pointer renders the path of the innermost open container, plus leaf when
// given.
func pointer(stack []frame, leaf *string) string {
	var segs []string
	if len(stack) > 1 {
		for _, f := range stack[:len(stack)-1] {
			segs = append(segs, f.seg)
		}
	}
	if leaf != nil {
		segs = append(segs, *leaf)
	}
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1"))
	}
	return b.String()
}
