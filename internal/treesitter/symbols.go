// Package treesitter provides tree-sitter based parsing of Python source into
// a structural summary of its functions and classes. The summary is what the
// docstring generator is fed with.
package treesitter

import (
	"fmt"
	"strings"
)

// FunctionRecord describes one function definition found anywhere in a file,
// methods and nested functions included.
type FunctionRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Parameters []string `json:"parameters" yaml:"parameters"` // plain positional names, declaration order
	Line       int      `json:"line" yaml:"line"`             // 1-indexed line of the def keyword
	EndLine    int      `json:"end_line" yaml:"end_line"`
	Async      bool     `json:"async,omitempty" yaml:"async,omitempty"`
	Docstring  *string  `json:"docstring,omitempty" yaml:"docstring,omitempty"` // nil when absent
	Source     string   `json:"source" yaml:"source"`
}

// ClassRecord describes one class definition.
type ClassRecord struct {
	Name      string   `json:"name" yaml:"name"`
	Line      int      `json:"line" yaml:"line"`
	EndLine   int      `json:"end_line" yaml:"end_line"`
	Docstring *string  `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Methods   []string `json:"methods" yaml:"methods"` // direct body-level defs only
}

// ParseResult is the outcome of a single parse pass.
type ParseResult struct {
	Functions []FunctionRecord `json:"functions" yaml:"functions"`
	Classes   []ClassRecord    `json:"classes" yaml:"classes"`
	Succeeded bool             `json:"success" yaml:"success"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasDocstring reports whether the function already carries a docstring.
func (f FunctionRecord) HasDocstring() bool {
	return f.Docstring != nil
}

// FormatSignature renders a one-line declaration header, e.g.
// "def area(width, height):". It only looks at Name and Parameters.
func FormatSignature(f FunctionRecord) string {
	return fmt.Sprintf("def %s(%s):", f.Name, strings.Join(f.Parameters, ", "))
}

// Undocumented returns the functions of r that have no docstring, in the
// order they appear in r.
func Undocumented(r ParseResult) []FunctionRecord {
	var out []FunctionRecord
	for _, f := range r.Functions {
		if !f.HasDocstring() {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns every function in r with the given name.
func Lookup(r ParseResult, name string) []FunctionRecord {
	var out []FunctionRecord
	for _, f := range r.Functions {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func failed(msg string) ParseResult {
	return ParseResult{
		Functions: []FunctionRecord{},
		Classes:   []ClassRecord{},
		Error:     msg,
	}
}
