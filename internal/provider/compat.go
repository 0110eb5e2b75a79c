package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// CompatProvider talks to any server exposing the OpenAI chat completions
// API over server-sent events (vLLM, llama.cpp, Ollama's /v1 layer).
type CompatProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewCompat creates a provider posting to baseURL + "/chat/completions".
func NewCompat(name, baseURL, apiKey, model string) *CompatProvider {
	return &CompatProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewOllama creates a provider for an Ollama server. The OpenAI layer lives
// under /v1 of the server root.
func NewOllama(endpoint, model string) *CompatProvider {
	return NewCompat("ollama", strings.TrimRight(endpoint, "/")+"/v1", "", model)
}

func (p *CompatProvider) Name() string {
	return p.name
}

func (p *CompatProvider) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	req := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   params.MaxOutputTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	reader, err := httpDoSSE(ctx, httpRequestConfig{
		client:   p.httpClient,
		url:      p.baseURL + "/chat/completions",
		body:     body,
		headers:  headers,
		provider: p.name,
		model:    p.model,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	text, err := collectSSE(ctx, reader)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	return text, nil
}

func (p *CompatProvider) Close() error {
	if p.httpClient != nil {
		p.httpClient.CloseIdleConnections()
	}
	return nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionStreamResponse struct {
	Choices []chatCompletionStreamChoice `json:"choices"`
}

type chatCompletionStreamChoice struct {
	Delta        chatCompletionStreamDelta `json:"delta"`
	FinishReason *string                   `json:"finish_reason"`
}

type chatCompletionStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type httpRequestConfig struct {
	client   *http.Client
	url      string
	body     []byte
	headers  map[string]string
	provider string
	model    string
}

// httpDoSSE makes one streaming request. Non-2xx answers become a
// *StatusError; nothing is retried.
func httpDoSSE(ctx context.Context, cfg httpRequestConfig) (io.ReadCloser, error) {
	log.Debug().Str("provider", cfg.provider).Str("model", cfg.model).Msg("SSE stream request started")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.url, bytes.NewReader(cfg.body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range cfg.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := cfg.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		serr := &StatusError{Provider: cfg.provider, Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
		log.Warn().Str("provider", cfg.provider).Int("status", resp.StatusCode).Bool("transient", serr.Transient()).Msg("SSE request rejected")
		return nil, serr
	}

	return resp.Body, nil
}

// collectSSE concatenates the content deltas of a chat completions stream.
func collectSSE(ctx context.Context, reader io.Reader) (string, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)

	var sb strings.Builder
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return sb.String(), nil
		}

		var chunk chatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Warn().Err(err).Str("data", data).Msg("Failed to parse SSE chunk")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		sb.WriteString(chunk.Choices[0].Delta.Content)
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
