package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	zen "github.com/sacenox/go-opencode-ai-zen-sdk"
)

const defaultZenURL = "https://opencode.ai/zen/v1"

// ZenProvider routes completions through the OpenCode Zen gateway, which
// fronts several vendor APIs behind one normalized stream.
type ZenProvider struct {
	name   string
	client *zen.Client
	model  string
}

func NewZen(name, apiKey, baseURL, model string) (*ZenProvider, error) {
	if baseURL == "" {
		baseURL = defaultZenURL
	}
	client, err := zen.NewClient(zen.Config{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("zen: %w", err)
	}

	return &ZenProvider{
		name:   name,
		client: client,
		model:  model,
	}, nil
}

func (p *ZenProvider) Name() string {
	return p.name
}

func (p *ZenProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	req := zen.NormalizedRequest{
		Model:    p.model,
		Messages: []zen.NormalizedMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	}
	// NormalizedRequest has no top_p; the gateway keeps its own default.
	temperature := params.Temperature
	req.Temperature = &temperature
	if params.MaxOutputTokens > 0 {
		maxTokens := params.MaxOutputTokens
		req.MaxTokens = &maxTokens
	}

	events, errs, err := p.client.UnifiedStreamNormalized(ctx, req)
	if err != nil {
		return "", p.wrap(err)
	}

	var sb strings.Builder
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return p.finish(sb.String())
			}
			sb.WriteString(zenEventText(ev))
		case err, ok := <-errs:
			if ok && err != nil {
				return "", p.wrap(err)
			}
			errs = nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (p *ZenProvider) finish(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	return text, nil
}

func (p *ZenProvider) wrap(err error) error {
	var apiErr *zen.APIError
	if errors.As(err, &apiErr) {
		log.Error().
			Int("status", apiErr.StatusCode).
			Str("body", string(apiErr.Body)).
			Msg("zen: stream API error")
		return &StatusError{Provider: p.name, Code: apiErr.StatusCode, Body: string(apiErr.Body)}
	}
	return fmt.Errorf("%s: %w", p.name, err)
}

func (p *ZenProvider) Close() error {
	return nil
}

// zenEventText returns the text carried by one normalized stream event. The
// payload shape depends on which vendor endpoint served the model.
func zenEventText(ev zen.UnifiedEvent) string {
	data := ev.Data
	if len(data) == 0 || string(data) == "[DONE]" {
		return ""
	}
	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		return ""
	}

	switch ev.Endpoint {
	case zen.EndpointMessages:
		if ev.Event != "content_block_delta" {
			return ""
		}
		delta, _ := chunk["delta"].(map[string]any)
		if getStringOrEmpty(delta, "type") != "text_delta" {
			return ""
		}
		return getStringOrEmpty(delta, "text")

	case zen.EndpointModels:
		candidates, _ := chunk["candidates"].([]any)
		if len(candidates) == 0 {
			return ""
		}
		cand, _ := candidates[0].(map[string]any)
		content, _ := cand["content"].(map[string]any)
		parts, _ := content["parts"].([]any)
		var sb strings.Builder
		for _, raw := range parts {
			part, _ := raw.(map[string]any)
			sb.WriteString(getStringOrEmpty(part, "text"))
		}
		return sb.String()

	case zen.EndpointResponses:
		if ev.Event != "response.output_text.delta" {
			return ""
		}
		return getStringOrEmpty(chunk, "delta")

	default:
		choices, _ := chunk["choices"].([]any)
		if len(choices) == 0 {
			return ""
		}
		choice, _ := choices[0].(map[string]any)
		delta, _ := choice["delta"].(map[string]any)
		return getStringOrEmpty(delta, "content")
	}
}

func getStringOrEmpty(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type ZenFactory struct{}

func NewZenFactory() *ZenFactory { return &ZenFactory{} }

func (f *ZenFactory) Name() string { return "zen" }

func (f *ZenFactory) Create(opts Options) (Completer, error) {
	log.Debug().
		Str("model", opts.Model).
		Bool("has_api_key", opts.APIKey != "").
		Str("base_url", opts.Endpoint).
		Msg("ZenFactory.Create")
	return NewZen("zen", opts.APIKey, opts.Endpoint, opts.Model)
}
