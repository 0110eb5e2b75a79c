// Package rewrite places generated docstrings into Python source and renders
// the resulting change.
package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xonecas/docsmith/internal/treesitter"
)

var (
	// ErrDocumented is returned when the target function already has a docstring.
	ErrDocumented = errors.New("function already has a docstring")

	// ErrEmptyDocstring is returned for a docstring with no text.
	ErrEmptyDocstring = errors.New("empty docstring")
)

const indentUnit = "    "

// Edit is one docstring destined for one function.
type Edit struct {
	Function  treesitter.FunctionRecord
	Docstring string
	Anchor    Anchor // optional; checked against the source before any change
}

// Insert places doc as the first statement of fn's body. Nothing in src is
// replaced; fn must not already have a docstring.
func Insert(src []byte, fn treesitter.FunctionRecord, doc string) ([]byte, error) {
	if fn.HasDocstring() {
		return nil, fmt.Errorf("%s: %w", fn.Name, ErrDocumented)
	}
	doc = Normalize(doc)
	if doc == "" {
		return nil, fmt.Errorf("%s: %w", fn.Name, ErrEmptyDocstring)
	}

	body, err := treesitter.LocateBody(src, fn.Name, fn.Line)
	if err != nil {
		return nil, err
	}

	newline := "\n"
	if bytes.Contains(src, []byte("\r\n")) {
		newline = "\r\n"
	}
	lines := splitLines(src)
	row := body.Line - 1

	var out []string
	out = append(out, lines[:row]...)
	if body.Inline {
		cur := lines[row]
		indent := leadingWhitespace(lines[fn.Line-1]) + indentUnit
		out = append(out, strings.TrimRight(cur[:body.Column], " \t"))
		out = append(out, quote(doc, indent)...)
		out = append(out, indent+cur[body.Column:])
	} else {
		indent := lines[row][:body.Column]
		if strings.TrimSpace(indent) != "" {
			indent = leadingWhitespace(lines[row])
		}
		out = append(out, quote(doc, indent)...)
		out = append(out, lines[row])
	}
	out = append(out, lines[row+1:]...)

	return []byte(strings.Join(out, newline)), nil
}

// Apply performs several edits on src. Every anchor is validated against the
// original text first; edits then run from the bottom of the file up so each
// function's recorded line stays valid.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	lines := splitLines(src)
	for _, e := range edits {
		if e.Anchor.IsZero() {
			continue
		}
		if err := e.Anchor.Validate(lines); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Function.Name, err)
		}
	}

	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Function.Line > ordered[j].Function.Line
	})

	out := src
	for _, e := range ordered {
		next, err := Insert(out, e.Function, e.Docstring)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Normalize strips quote fences a model may wrap its answer in, removes the
// common indentation of continuation lines and trailing whitespace.
func Normalize(doc string) string {
	doc = strings.TrimSpace(strings.ReplaceAll(doc, "\r\n", "\n"))
	for _, fence := range []string{`"""`, `'''`} {
		if len(doc) >= 2*len(fence) && strings.HasPrefix(doc, fence) && strings.HasSuffix(doc, fence) {
			doc = strings.TrimSpace(doc[len(fence) : len(doc)-len(fence)])
			break
		}
	}
	if doc == "" {
		return ""
	}

	lines := strings.Split(doc, "\n")
	margin := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if margin < 0 || n < margin {
			margin = n
		}
	}
	for i, l := range lines {
		if i > 0 && margin > 0 && len(l) >= margin {
			l = l[margin:]
		}
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// quote renders doc as a triple-quoted string literal, one entry per line,
// every non-empty line prefixed with indent.
func quote(doc, indent string) []string {
	doc = strings.ReplaceAll(doc, `\`, `\\`)
	doc = strings.ReplaceAll(doc, `"""`, `\"\"\"`)

	parts := strings.Split(doc, "\n")
	if len(parts) == 1 && !strings.HasSuffix(doc, `"`) {
		return []string{indent + `"""` + doc + `"""`}
	}

	out := []string{indent + `"""` + parts[0]}
	for _, p := range parts[1:] {
		if p == "" {
			out = append(out, "")
			continue
		}
		out = append(out, indent+p)
	}
	return append(out, indent+`"""`)
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
