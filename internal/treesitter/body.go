package treesitter

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrNotFound is returned when no function matches a lookup.
var ErrNotFound = errors.New("function not found")

// Body locates the first statement of a function body.
type Body struct {
	Line      int  // 1-based row of the first body statement
	Column    int  // 0-based byte column of the first body statement
	Inline    bool // body starts on the header's last line, as in "def f(): pass"
	DefColumn int  // 0-based byte column of the "def" (or "async") keyword
}

// LocateBody finds the function called name whose def keyword is on line
// (1-based) and returns where its body starts.
func LocateBody(src []byte, name string, line int) (Body, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return Body{}, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Body{}, fmt.Errorf("%s", describeSyntaxError(root))
	}

	iter := sitter.NewNamedIterator(root, sitter.DFSMode)
	for {
		node, err := iter.Next()
		if err != nil {
			break
		}
		if node.Type() != "function_definition" || int(node.StartPoint().Row)+1 != line {
			continue
		}
		ident := node.ChildByFieldName("name")
		if ident == nil || ident.Content(src) != name {
			continue
		}
		block := node.ChildByFieldName("body")
		if block == nil || block.NamedChildCount() == 0 {
			return Body{}, fmt.Errorf("%s: empty body", name)
		}
		first := block.NamedChild(0)
		colon := block.PrevSibling()
		headerEnd := node.StartPoint().Row
		if colon != nil {
			headerEnd = colon.EndPoint().Row
		}
		return Body{
			Line:      int(first.StartPoint().Row) + 1,
			Column:    int(first.StartPoint().Column),
			Inline:    first.StartPoint().Row == headerEnd,
			DefColumn: int(node.StartPoint().Column),
		}, nil
	}
	return Body{}, fmt.Errorf("%w: %s at line %d", ErrNotFound, name, line)
}
