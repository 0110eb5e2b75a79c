package rewrite

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Diff renders the change from before to after as a unified diff with
// a/ and b/ prefixed file names. Identical inputs give an empty string.
func Diff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(path), string(before), string(after))
	return fmt.Sprint(gotextdiff.ToUnified("a/"+path, "b/"+path, string(before), edits))
}
