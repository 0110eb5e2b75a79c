package docgen

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned for a style name outside the supported set.
var ErrInvalidArgument = errors.New("invalid argument")

// Style names a docstring convention.
type Style string

const (
	StyleGoogle Style = "google"
	StyleNumPy  Style = "numpy"
	StyleSphinx Style = "sphinx"
)

//go:embed prompts/google.md
var googleInstruction string

//go:embed prompts/numpy.md
var numpyInstruction string

//go:embed prompts/sphinx.md
var sphinxInstruction string

// Styles returns the supported styles in a stable order.
func Styles() []Style {
	return []Style{StyleGoogle, StyleNumPy, StyleSphinx}
}

func (s Style) String() string { return string(s) }

// ParseStyle matches name case-insensitively against the supported styles.
// Surrounding whitespace is not ignored.
func ParseStyle(name string) (Style, error) {
	s := Style(strings.ToLower(name))
	switch s {
	case StyleGoogle, StyleNumPy, StyleSphinx:
		return s, nil
	}
	names := make([]string, 0, len(Styles()))
	for _, st := range Styles() {
		names = append(names, st.String())
	}
	return "", fmt.Errorf("%w: invalid style %q, must be one of: %s",
		ErrInvalidArgument, name, strings.Join(names, ", "))
}

// instruction returns the prompt instruction for s. Only the exact
// lowercase names match; anything else gets the Google instruction.
func (s Style) instruction() string {
	switch s {
	case StyleNumPy:
		return strings.TrimSpace(numpyInstruction)
	case StyleSphinx:
		return strings.TrimSpace(sphinxInstruction)
	default:
		return strings.TrimSpace(googleInstruction)
	}
}
