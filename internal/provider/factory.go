package provider

import "errors"

const defaultOllamaEndpoint = "http://localhost:11434"

type OllamaFactory struct{}

func NewOllamaFactory() *OllamaFactory { return &OllamaFactory{} }

func (f *OllamaFactory) Name() string { return "ollama" }

func (f *OllamaFactory) Create(opts Options) (Completer, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	return NewOllama(endpoint, opts.Model), nil
}

// CompatFactory builds providers for OpenAI-compatible servers, where the
// configured endpoint already includes the API version prefix.
type CompatFactory struct {
	name string
}

func NewCompatFactory(name string) *CompatFactory {
	return &CompatFactory{name: name}
}

func (f *CompatFactory) Name() string { return f.name }

func (f *CompatFactory) Create(opts Options) (Completer, error) {
	if opts.Endpoint == "" {
		return nil, errors.New(f.name + ": missing endpoint")
	}
	return NewCompat(f.name, opts.Endpoint, opts.APIKey, opts.Model), nil
}
