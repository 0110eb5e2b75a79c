// Package docgen builds docstring prompts for Python functions and turns
// model completions into docstring text.
package docgen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/docsmith/internal/provider"
)

const promptFrame = "You are a Python documentation expert. %s\n\nFunction name: %s\nCode:\n%s\n\nDocstring:"

// delimiter marks where the docstring starts in a completion that echoes
// the prompt.
const delimiter = "Docstring:"

// Synthesizer asks a Completer for docstrings in a configurable default style.
type Synthesizer struct {
	completer provider.Completer
	params    provider.Params

	mu    sync.RWMutex
	style Style
}

// New returns a Synthesizer with the Google style as default.
func New(c provider.Completer) *Synthesizer {
	return &Synthesizer{
		completer: c,
		params:    provider.DefaultParams(),
		style:     StyleGoogle,
	}
}

// WithParams overrides the sampling parameters sent with each request.
func (s *Synthesizer) WithParams(p provider.Params) *Synthesizer {
	s.params = p
	return s
}

// Style returns the current default style.
func (s *Synthesizer) Style() Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// SetStyle changes the default style. On error the default is left as is.
func (s *Synthesizer) SetStyle(name string) error {
	st, err := ParseStyle(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.style = st
	s.mu.Unlock()
	return nil
}

// BuildPrompt renders the request sent to the model for one function.
func BuildPrompt(source, name string, style Style) string {
	return fmt.Sprintf(promptFrame, style.instruction(), name, source)
}

// GenerateDocstring requests a docstring for the function called name whose
// code is source. An empty style means the default. Completer errors are
// returned unchanged.
func (s *Synthesizer) GenerateDocstring(ctx context.Context, source, name string, style Style) (string, error) {
	if style == "" {
		style = s.Style()
	}
	prompt := BuildPrompt(source, name, style)

	log.Debug().
		Str("function", name).
		Str("style", style.String()).
		Str("provider", s.completer.Name()).
		Msg("requesting docstring")

	completion, err := s.completer.Complete(ctx, prompt, s.params)
	if err != nil {
		return "", err
	}
	return ExtractDocstring(completion), nil
}

// ExtractDocstring returns the text after the last "Docstring:" marker, or
// the whole completion, with surrounding whitespace removed.
func ExtractDocstring(completion string) string {
	if i := strings.LastIndex(completion, delimiter); i >= 0 {
		completion = completion[i+len(delimiter):]
	}
	return strings.TrimSpace(completion)
}
