package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	cli   *genai.Client
	model string
}

// NewGemini creates a Gemini provider. With an empty apiKey the SDK falls
// back to GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiProvider{cli: cli, model: model}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }
func (g *GeminiProvider) Close() error { return nil }

func (g *GeminiProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	temperature := float32(params.Temperature)
	topP := float32(params.TopP)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			MaxOutputTokens: int32(params.MaxOutputTokens),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}
	return sb.String(), nil
}

type GeminiFactory struct{}

func NewGeminiFactory() *GeminiFactory { return &GeminiFactory{} }

func (f *GeminiFactory) Name() string { return "gemini" }

func (f *GeminiFactory) Create(opts Options) (Completer, error) {
	if opts.Model == "" {
		return nil, errors.New("gemini: missing model")
	}
	return NewGemini(context.Background(), opts.APIKey, opts.Model)
}
