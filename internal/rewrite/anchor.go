package rewrite

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashLen is the number of hex characters per line hash.
const HashLen = 8

// LineHash computes a short content hash for a single line. Trailing
// whitespace and a carriage return do not count.
func LineHash(line string) string {
	h := sha256.Sum256([]byte(strings.TrimRight(line, " \t\r")))
	return hex.EncodeToString(h[:HashLen/2])
}

// Anchor identifies a line by number and hash. Generation can take a while,
// and a file edited in the meantime must not receive a docstring at a line
// that now holds something else.
type Anchor struct {
	Line int
	Hash string
}

// AnchorAt returns the anchor for the 1-based line of src.
func AnchorAt(src []byte, line int) (Anchor, error) {
	lines := splitLines(src)
	if line < 1 || line > len(lines) {
		return Anchor{}, fmt.Errorf("line %d out of range (file has %d lines)", line, len(lines))
	}
	return Anchor{Line: line, Hash: LineHash(lines[line-1])}, nil
}

func (a Anchor) String() string {
	return fmt.Sprintf("%d:%s", a.Line, a.Hash)
}

// IsZero reports whether the anchor was never set.
func (a Anchor) IsZero() bool {
	return a.Line == 0 && a.Hash == ""
}

// StaleError is returned when an anchor's hash doesn't match the actual file content.
type StaleError struct {
	Line     int
	Expected string
	Got      string
	Content  string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("line %d changed since it was parsed: expected %s, got %s (actual: %q)", e.Line, e.Expected, e.Got, e.Content)
}

// Validate checks that the anchor matches the actual file lines.
// lines is 0-indexed; a.Line is 1-indexed.
func (a Anchor) Validate(lines []string) error {
	idx := a.Line - 1
	if idx < 0 || idx >= len(lines) {
		return fmt.Errorf("line %d out of range (file has %d lines)", a.Line, len(lines))
	}
	actual := LineHash(lines[idx])
	if actual != a.Hash {
		return &StaleError{
			Line:     a.Line,
			Expected: a.Hash,
			Got:      actual,
			Content:  strings.TrimRight(lines[idx], "\r"),
		}
	}
	return nil
}

func splitLines(src []byte) []string {
	return strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
}
