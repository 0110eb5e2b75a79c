package provider

import (
	"context"
	"sync"
	"time"
)

// Call records one Complete invocation on a MockProvider.
type Call struct {
	Prompt string
	Params Params
}

// MockProvider is a test provider that returns predefined responses.
type MockProvider struct {
	mu sync.RWMutex

	name     string
	response string
	err      error
	delay    time.Duration
	calls    []Call
}

// NewMock creates a new mock provider.
func NewMock(name, response string) *MockProvider {
	return &MockProvider{
		name:     name,
		response: response,
	}
}

type MockFactory struct {
	mock *MockProvider
}

// NewMockFactory returns a factory that always hands out m.
func NewMockFactory(m *MockProvider) *MockFactory {
	return &MockFactory{mock: m}
}

func (f *MockFactory) Name() string { return f.mock.Name() }

func (f *MockFactory) Create(Options) (Completer, error) {
	return f.mock, nil
}

// WithError sets an error to return from Complete.
func (p *MockProvider) WithError(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

func (p *MockProvider) SetDelay(delay time.Duration) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = delay
	return p
}

// WithResponse sets the predefined response to return from Complete.
func (p *MockProvider) WithResponse(response string) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = response
	return p
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return p.name
}

// Complete records the call and returns the predefined response or error.
func (p *MockProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Prompt: prompt, Params: params})
	p.mu.Unlock()

	if err := p.waitDelay(ctx); err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

// Calls returns the invocations seen so far.
func (p *MockProvider) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *MockProvider) waitDelay(ctx context.Context) error {
	p.mu.RLock()
	delay := p.delay
	p.mu.RUnlock()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close is a no-op for mock provider (no resources to clean up).
func (p *MockProvider) Close() error {
	return nil
}
