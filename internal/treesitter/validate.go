package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// The Python grammar is more forgiving than CPython: it parses Python 2
// statements and does not enforce indentation. checkPython rejects what
// CPython's parser would reject on an error-free tree.

// syntaxChecker keeps the earliest problem found.
type syntaxChecker struct {
	src   []byte
	found bool
	pos   sitter.Point
	msg   string
}

// checkPython returns a syntax error message for root, or "" when the tree
// is valid Python 3.
func checkPython(root *sitter.Node, src []byte) string {
	c := &syntaxChecker{src: src}
	c.walk(root)
	if !c.found {
		return ""
	}
	return fmt.Sprintf("%s (line %d, column %d)", c.msg, c.pos.Row+1, c.pos.Column+1)
}

func (c *syntaxChecker) report(at sitter.Point, msg string) {
	if c.found && (at.Row > c.pos.Row || (at.Row == c.pos.Row && at.Column >= c.pos.Column)) {
		return
	}
	c.found, c.pos, c.msg = true, at, msg
}

func (c *syntaxChecker) walk(n *sitter.Node) {
	switch n.Type() {
	case "module":
		c.checkModule(n)
	case "block":
		c.checkBlock(n)
	case "print_statement":
		c.report(n.StartPoint(), "Missing parentheses in call to 'print'")
	case "exec_statement":
		c.report(n.StartPoint(), "Missing parentheses in call to 'exec'")
	case "delete_statement":
		for _, target := range statements(n) {
			c.checkDeleteTarget(target)
		}
	case "augmented_assignment":
		if left := n.ChildByFieldName("left"); left != nil && !simpleTarget(left) {
			c.report(left.StartPoint(), "illegal expression for augmented assignment")
		}
	case "argument_list":
		c.checkArguments(n)
	case "parameters", "lambda_parameters":
		c.checkParameters(n)
	case "integer":
		c.checkInteger(n)
	case "<>":
		c.report(n.StartPoint(), "invalid syntax")
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			c.walk(child)
		}
	}
}

// statements returns the named children of n that are not comments.
func statements(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.IsExtra() || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *syntaxChecker) checkModule(n *sitter.Node) {
	for _, stmt := range statements(n) {
		if c.lineLeading(stmt) && c.indent(stmt.StartByte()) != 0 {
			c.report(stmt.StartPoint(), "unexpected indent")
		}
	}
}

func (c *syntaxChecker) checkBlock(n *sitter.Node) {
	stmts := statements(n)
	if len(stmts) == 0 {
		at := n.StartPoint()
		if colon := n.PrevSibling(); colon != nil {
			at = sitter.Point{Row: colon.EndPoint().Row + 1}
		}
		c.report(at, "expected an indented block")
		return
	}

	// A body on the header line: nothing may follow on later lines.
	if !c.lineLeading(stmts[0]) {
		for _, stmt := range stmts[1:] {
			if c.lineLeading(stmt) {
				c.report(stmt.StartPoint(), "unexpected indent")
				return
			}
		}
		return
	}

	want := c.indent(stmts[0].StartByte())
	if header := n.Parent(); header != nil && want <= c.indent(header.StartByte()) {
		c.report(stmts[0].StartPoint(), "expected an indented block")
	}
	for _, stmt := range stmts[1:] {
		if !c.lineLeading(stmt) {
			continue
		}
		switch got := c.indent(stmt.StartByte()); {
		case got > want:
			c.report(stmt.StartPoint(), "unexpected indent")
		case got < want:
			c.report(stmt.StartPoint(), "unindent does not match any outer indentation level")
		}
	}
}

// lineLeading reports whether n is the first token of a logical line.
func (c *syntaxChecker) lineLeading(n *sitter.Node) bool {
	j := int(n.StartByte()) - 1
	for j >= 0 && (c.src[j] == ' ' || c.src[j] == '\t' || c.src[j] == '\f') {
		j--
	}
	if j < 0 {
		return true
	}
	if c.src[j] != '\n' && c.src[j] != '\r' {
		return false
	}
	// A backslash before the newline joins the lines.
	k := j - 1
	if c.src[j] == '\n' && k >= 0 && c.src[k] == '\r' {
		k--
	}
	return k < 0 || c.src[k] != '\\'
}

// indent measures the indentation of the line holding offset, with tabs
// advancing to the next multiple of eight.
func (c *syntaxChecker) indent(offset uint32) int {
	start := int(offset)
	for start > 0 && c.src[start-1] != '\n' && c.src[start-1] != '\r' {
		start--
	}
	width := 0
	for i := start; i < len(c.src); i++ {
		switch c.src[i] {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			return width
		}
	}
	return width
}

func (c *syntaxChecker) checkDeleteTarget(n *sitter.Node) {
	switch n.Type() {
	case "identifier", "attribute", "subscript":
	case "parenthesized_expression", "tuple", "list", "expression_list":
		for _, child := range statements(n) {
			c.checkDeleteTarget(child)
		}
	case "call":
		c.report(n.StartPoint(), "cannot delete function call")
	case "string", "concatenated_string", "integer", "float", "true", "false", "none":
		c.report(n.StartPoint(), "cannot delete literal")
	default:
		c.report(n.StartPoint(), "cannot delete expression")
	}
}

func simpleTarget(n *sitter.Node) bool {
	for n.Type() == "parenthesized_expression" && n.NamedChildCount() == 1 {
		n = n.NamedChild(0)
	}
	switch n.Type() {
	case "identifier", "attribute", "subscript":
		return true
	}
	return false
}

func (c *syntaxChecker) checkArguments(n *sitter.Node) {
	keyword, dictSplat := false, false
	for _, arg := range statements(n) {
		switch arg.Type() {
		case "keyword_argument":
			keyword = true
		case "dictionary_splat":
			keyword, dictSplat = true, true
		case "list_splat", "parenthesized_list_splat":
			if dictSplat {
				c.report(arg.StartPoint(), "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			if dictSplat {
				c.report(arg.StartPoint(), "positional argument follows keyword argument unpacking")
			} else if keyword {
				c.report(arg.StartPoint(), "positional argument follows keyword argument")
			}
		}
	}
}

// checkParameters rejects a parameter without a default after one with a
// default, up to the first star.
func (c *syntaxChecker) checkParameters(n *sitter.Node) {
	defaulted := false
	for _, p := range statements(n) {
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
			defaulted = true
		case "typed_parameter":
			if first := p.NamedChild(0); first == nil || first.Type() != "identifier" {
				return
			}
			if defaulted {
				c.report(p.StartPoint(), "parameter without a default follows parameter with a default")
			}
		case "identifier":
			if defaulted {
				c.report(p.StartPoint(), "parameter without a default follows parameter with a default")
			}
		case "keyword_separator", "list_splat_pattern", "dictionary_splat_pattern":
			return
		}
	}
}

// checkInteger rejects Python 2 integer forms: a long suffix and octal
// written with a bare leading zero.
func (c *syntaxChecker) checkInteger(n *sitter.Node) {
	text := strings.ToLower(content(n, c.src))
	if strings.HasSuffix(text, "l") {
		c.report(n.StartPoint(), "invalid decimal literal")
		return
	}
	if len(text) < 2 || text[0] != '0' || strings.HasSuffix(text, "j") {
		return
	}
	if strings.IndexByte("xob", text[1]) >= 0 {
		return
	}
	if strings.Trim(text, "0_") != "" {
		c.report(n.StartPoint(), "leading zeros in decimal integer literals are not permitted")
	}
}
