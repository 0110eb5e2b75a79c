package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider uses the official OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider. An empty baseURL keeps the client's
// default API host.
func NewOpenAI(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   params.MaxOutputTokens,
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			log.Warn().Int("status", apiErr.HTTPStatusCode).Str("model", p.model).Msg("openai: request rejected")
			return "", &StatusError{Provider: p.Name(), Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &StatusError{Provider: p.Name(), Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Close() error {
	return nil
}

type OpenAIFactory struct{}

func NewOpenAIFactory() *OpenAIFactory { return &OpenAIFactory{} }

func (f *OpenAIFactory) Name() string { return "openai" }

func (f *OpenAIFactory) Create(opts Options) (Completer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	return NewOpenAI(opts.APIKey, opts.Endpoint, opts.Model), nil
}
