// Package provider defines the text completion capability docstrings are
// generated with, and its implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrProviderNotFound is returned when a requested provider doesn't exist.
var ErrProviderNotFound = errors.New("provider not found")

// ErrEmptyCompletion is returned when a backend answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// Params fixes the sampling parameters of a single completion.
type Params struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

// DefaultParams returns the parameters used for docstring generation.
func DefaultParams() Params {
	return Params{
		MaxOutputTokens: 300,
		Temperature:     0.7,
		TopP:            0.9,
	}
}

// Completer turns a prompt into a completion. Complete blocks until the whole
// completion is available; failures are returned as-is so callers can
// classify them.
type Completer interface {
	// Name returns the provider's identifier.
	Name() string

	// Complete sends a single prompt and returns the full completion text.
	Complete(ctx context.Context, prompt string, params Params) (string, error)

	// Close closes idle HTTP connections and cleans up resources.
	Close() error
}

// Options configures a Completer built by a Factory.
type Options struct {
	Endpoint string
	APIKey   string
	Model    string
}

// Factory builds a Completer for a configured provider entry.
type Factory interface {
	Name() string
	Create(opts Options) (Completer, error)
}

// StatusError is a non-2xx answer from an HTTP backend.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: request status %d: %s", e.Provider, e.Code, e.Body)
}

// Transient reports whether retrying later could succeed.
func (e *StatusError) Transient() bool {
	return isTransientStatus(e.Code)
}

func isTransientStatus(code int) bool {
	return code == 429 || code == 500 || code == 502 || code == 503 || code == 504
}

// Registry maps provider kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry with every built-in backend.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterFactory(NewOllamaFactory())
	r.RegisterFactory(NewCompatFactory("vllm"))
	r.RegisterFactory(NewCompatFactory("openai-compat"))
	r.RegisterFactory(NewOpenAIFactory())
	r.RegisterFactory(NewGeminiFactory())
	r.RegisterFactory(NewZenFactory())
	return r
}

func (r *Registry) RegisterFactory(f Factory) {
	r.factories[f.Name()] = f
}

// Create builds a Completer of the given kind.
func (r *Registry) Create(kind string, opts Options) (Completer, error) {
	f, ok := r.factories[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, kind)
	}
	return f.Create(opts)
}

// List returns all registered provider kinds, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
