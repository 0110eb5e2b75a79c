package treesitter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Supported returns true if the path looks like a Python source file.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyi":
		return true
	default:
		return false
	}
}

// Extractor parses Python source and keeps the records of its most recent
// pass. Every call to Parse replaces them, successful or not.
type Extractor struct {
	mu        sync.RWMutex
	functions []FunctionRecord
	classes   []ClassRecord
}

// NewExtractor returns an Extractor with no recorded pass.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Parse parses src and records the result. Syntax errors are reported in the
// result, never as a panic.
func (e *Extractor) Parse(src []byte) ParseResult {
	res := ParseSource(src)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions = res.Functions
	e.classes = res.Classes
	return res
}

// Functions returns the functions recorded by the last Parse.
func (e *Extractor) Functions() []FunctionRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.functions)
}

// Classes returns the classes recorded by the last Parse.
func (e *Extractor) Classes() []ClassRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.classes)
}

// ParseFile reads and parses a file. The error is only set when the file
// cannot be read; syntax problems end up in the result.
func ParseFile(path string) (ParseResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, err
	}
	return ParseSource(src), nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseSource parses Python source bytes without touching any Extractor state.
// Input the grammar accepts but Python 3 rejects, such as bad indentation or
// a print statement, fails like any other syntax error.
func ParseSource(src []byte) ParseResult {
	src = bytes.TrimPrefix(src, utf8BOM)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return failed(err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		msg := describeSyntaxError(root)
		log.Debug().Str("error", msg).Int("bytes", len(src)).Msg("python parse failed")
		return failed(msg)
	}
	if msg := checkPython(root, src); msg != "" {
		log.Debug().Str("error", msg).Int("bytes", len(src)).Msg("python parse rejected")
		return failed(msg)
	}
	return extractPython(root, src)
}

// extractPython visits every node breadth-first and collects function and
// class definitions. Blocks and decorator wrappers do not count as a level,
// so top-level definitions come out in source order whether decorated or not.
func extractPython(root *sitter.Node, src []byte) ParseResult {
	res := ParseResult{
		Functions: []FunctionRecord{},
		Classes:   []ClassRecord{},
		Succeeded: true,
	}

	queue := []*sitter.Node{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch node.Type() {
		case "function_definition":
			res.Functions = append(res.Functions, extractFunc(node, src))
		case "class_definition":
			res.Classes = append(res.Classes, extractClass(node, src))
		}

		eachChild(node, func(child *sitter.Node) {
			queue = append(queue, child)
		})
	}
	return res
}

// eachChild calls fn for every named child of node, looking through blocks
// and decorated_definition wrappers.
func eachChild(node *sitter.Node, fn func(*sitter.Node)) {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "block", "decorated_definition":
			eachChild(child, fn)
		default:
			fn(child)
		}
	}
}

func extractFunc(node *sitter.Node, src []byte) FunctionRecord {
	fn := FunctionRecord{
		Parameters: []string{},
		Line:       line(node),
		EndLine:    endLine(node),
		Async:      isAsync(node),
		Docstring:  bodyDocstring(node.ChildByFieldName("body"), src),
		Source:     renderSource(declaration(node), src),
	}
	if name := node.ChildByFieldName("name"); name != nil {
		fn.Name = content(name, src)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Parameters = positionalParams(params, src)
	}
	return fn
}

func extractClass(node *sitter.Node, src []byte) ClassRecord {
	body := node.ChildByFieldName("body")
	cls := ClassRecord{
		Line:      line(node),
		EndLine:   endLine(node),
		Docstring: bodyDocstring(body, src),
		Methods:   directMethods(body, src),
	}
	if name := node.ChildByFieldName("name"); name != nil {
		cls.Name = content(name, src)
	}
	return cls
}

// directMethods lists the defs that sit directly in a class body. A def
// inside an if/try/with within the body is not a method here.
func directMethods(body *sitter.Node, src []byte) []string {
	methods := []string{}
	if body == nil {
		return methods
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		def := body.NamedChild(i)
		if def != nil && def.Type() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil || def.Type() != "function_definition" {
			continue
		}
		if name := def.ChildByFieldName("name"); name != nil {
			methods = append(methods, content(name, src))
		}
	}
	return methods
}

// positionalParams returns the plain positional parameter names. Positional
// only names (before "/") are dropped and collection stops at the first
// "*", "*args" or "**kwargs".
func positionalParams(params *sitter.Node, src []byte) []string {
	names := []string{}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "identifier":
			names = append(names, content(p, src))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				names = append(names, content(name, src))
			}
		case "typed_parameter":
			first := p.NamedChild(0)
			if first == nil {
				continue
			}
			if first.Type() != "identifier" {
				return names // *args: T or **kw: T
			}
			names = append(names, content(first, src))
		case "positional_separator":
			names = []string{}
		case "keyword_separator", "list_splat_pattern", "dictionary_splat_pattern":
			return names
		}
	}
	return names
}

func isAsync(node *sitter.Node) bool {
	first := node.Child(0)
	return first != nil && first.Type() == "async"
}

// declaration returns the decorated_definition wrapping node, if any, so
// that decorators are part of the rendered source.
func declaration(node *sitter.Node) *sitter.Node {
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		return parent
	}
	return node
}

// describeSyntaxError formats the first ERROR or MISSING node under root.
func describeSyntaxError(root *sitter.Node) string {
	bad := firstErrorNode(root)
	if bad == nil {
		return "invalid syntax"
	}
	pos := bad.StartPoint()
	where := fmt.Sprintf("line %d, column %d", pos.Row+1, pos.Column+1)
	if bad.IsMissing() {
		return fmt.Sprintf("expected %q (%s)", bad.Type(), where)
	}
	return fmt.Sprintf("invalid syntax (%s)", where)
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsMissing() || node.Type() == "ERROR" {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if bad := firstErrorNode(node.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// helpers

func content(node *sitter.Node, src []byte) string {
	return node.Content(src)
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1 // 1-indexed
}

func endLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}
