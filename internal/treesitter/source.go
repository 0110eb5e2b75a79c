package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// renderSource re-serializes a declaration subtree in a canonical layout:
// "\n" line endings, the declaration's own indentation removed and trailing
// whitespace stripped. Lines that start or end inside a multi-line string
// literal are left untouched so string values do not change.
func renderSource(node *sitter.Node, src []byte) string {
	text := strings.ReplaceAll(content(node, src), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	indent := int(node.StartPoint().Column)
	heads, tails := multilineStringRows(node)

	for i, l := range lines {
		if !tails[i] {
			l = strings.TrimRight(l, " \t\r")
		}
		if i > 0 && !heads[i] {
			l = trimIndent(l, indent)
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}

// multilineStringRows reports, relative to node's first row, which rows begin
// inside a string literal (heads) and which end inside one (tails).
func multilineStringRows(node *sitter.Node) (heads, tails map[int]bool) {
	heads = make(map[int]bool)
	tails = make(map[int]bool)
	base := int(node.StartPoint().Row)

	iter := sitter.NewNamedIterator(node, sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil {
			break // io.EOF
		}
		if n.Type() != "string" {
			continue
		}
		start := int(n.StartPoint().Row) - base
		end := int(n.EndPoint().Row) - base
		for r := start; r < end; r++ {
			tails[r] = true
			heads[r+1] = true
		}
	}
	return heads, tails
}

// trimIndent removes up to n leading spaces or tabs.
func trimIndent(s string, n int) string {
	i := 0
	for i < len(s) && i < n && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:]
}
