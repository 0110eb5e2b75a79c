package treesitter

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/text/unicode/runenames"
)

// bodyDocstring returns the cleaned docstring of a def or class body, or nil
// when the first statement is not a plain string literal. Implicitly
// concatenated literals count when every part is a plain string.
func bodyDocstring(body *sitter.Node, src []byte) *string {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt == nil || stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return nil
		}
		value, ok := literalValue(stmt.NamedChild(0), src)
		if !ok {
			return nil
		}
		doc := cleanDoc(value)
		return &doc
	}
	return nil
}

// literalValue decodes a string or concatenated_string node.
func literalValue(lit *sitter.Node, src []byte) (string, bool) {
	if lit == nil {
		return "", false
	}
	switch lit.Type() {
	case "string":
		return stringLiteralValue(content(lit, src))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(lit.NamedChildCount()); i++ {
			part := lit.NamedChild(i)
			if part == nil || part.Type() == "comment" {
				continue
			}
			if part.Type() != "string" {
				return "", false
			}
			value, ok := stringLiteralValue(content(part, src))
			if !ok {
				return "", false
			}
			b.WriteString(value)
		}
		return b.String(), true
	}
	return "", false
}

// stringLiteralValue strips the prefix and quotes of a Python string literal
// and resolves escapes. Bytes and f-strings are rejected: they are not
// docstrings.
func stringLiteralValue(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfF", raw[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}

	body := raw[i:]
	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	body = body[len(quote) : len(body)-len(quote)]
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body), true
}

var escapes = map[byte]string{
	'\\': `\`,
	'\'': `'`,
	'"':  `"`,
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'v':  "\v",
	'\n': "", // line continuation
}

// unescape resolves Python string escapes. Escapes Python does not know,
// or that are malformed, are kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		if repl, ok := escapes[next]; ok {
			b.WriteString(repl)
			i++
			continue
		}
		switch next {
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j, v := i+1, 0
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				v = v*8 + int(s[j]-'0')
				j++
			}
			b.WriteRune(rune(v))
			i = j - 1
			continue
		case 'x', 'u', 'U':
			width := 2
			switch next {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if r, ok := hexRune(s[i+2:], width); ok {
				b.WriteRune(r)
				i += 1 + width
				continue
			}
		case 'N':
			if rest := s[i+2:]; strings.HasPrefix(rest, "{") {
				if end := strings.IndexByte(rest, '}'); end > 1 {
					if r, ok := lookupRuneName(rest[1:end]); ok {
						b.WriteRune(r)
						i += 2 + end
						continue
					}
				}
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hexRune(s string, width int) (rune, bool) {
	if len(s) < width {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:width], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return 0, false
	}
	return rune(v), true
}

var runeNames = sync.OnceValue(func() map[string]rune {
	names := make(map[string]rune)
	for r := rune(0); r <= unicode.MaxRune; r++ {
		if name := runenames.Name(r); name != "" && name[0] != '<' {
			names[name] = r
		}
	}
	return names
})

// lookupRuneName resolves the name of a \N{...} escape.
func lookupRuneName(name string) (rune, bool) {
	name = strings.ToUpper(name)
	if code, ok := strings.CutPrefix(name, "CJK UNIFIED IDEOGRAPH-"); ok {
		return hexRune(code, len(code))
	}
	r, ok := runeNames()[name]
	return r, ok
}

// cleanDoc normalizes docstring indentation the same way Python's
// inspect.cleandoc does.
func cleanDoc(doc string) string {
	lines := strings.Split(expandTabs(doc, 8), "\n")

	margin := -1
	for _, l := range lines[1:] {
		stripped := strings.TrimLeft(l, whitespace)
		if stripped == "" {
			continue
		}
		if indent := len(l) - len(stripped); margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], whitespace)
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) > margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = ""
			}
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

const whitespace = " \t\r\f\v"

func expandTabs(s string, size int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			pad := size - col%size
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
		case '\n', '\r':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}
