package treesitter

import (
	"fmt"
	"sort"
	"strings"
)

// MaxOutlineBytes caps the outline so a large project still prints something
// readable.
const MaxOutlineBytes = 16 * 1024

// FormatOutline produces a compact per-file outline of a project snapshot.
// Output is capped at MaxOutlineBytes.
//
// Example output:
//
//	# Python Structure
//	shapes/area.py:
//	  class: Circle(__init__, area), Square(area)
//	  fn: __init__, area, area, describe
//	  undocumented: describe
func FormatOutline(snap map[string]ParseResult) string {
	if len(snap) == 0 {
		return ""
	}

	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString("# Python Structure\n")

	for _, path := range paths {
		text := FormatFile(snap[path])
		if text == "" {
			continue
		}
		entry := fmt.Sprintf("%s:\n%s", path, text)
		if b.Len()+len(entry) > MaxOutlineBytes {
			fmt.Fprintf(&b, "# ... truncated (%d files total)\n", len(paths))
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

// FormatFile renders the outline body for a single parse result, indented by
// two spaces. Empty files render as "".
func FormatFile(r ParseResult) string {
	if !r.Succeeded {
		return fmt.Sprintf("  error: %s\n", r.Error)
	}
	if len(r.Functions) == 0 && len(r.Classes) == 0 {
		return ""
	}

	var b strings.Builder
	if len(r.Classes) > 0 {
		classes := make([]string, len(r.Classes))
		for i, c := range r.Classes {
			if len(c.Methods) == 0 {
				classes[i] = c.Name
				continue
			}
			classes[i] = fmt.Sprintf("%s(%s)", c.Name, strings.Join(c.Methods, ", "))
		}
		fmt.Fprintf(&b, "  class: %s\n", strings.Join(classes, ", "))
	}

	if len(r.Functions) > 0 {
		names := make([]string, len(r.Functions))
		for i, f := range r.Functions {
			names[i] = f.Name
		}
		fmt.Fprintf(&b, "  fn: %s\n", strings.Join(names, ", "))
	}

	if missing := Undocumented(r); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = f.Name
		}
		fmt.Fprintf(&b, "  undocumented: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
