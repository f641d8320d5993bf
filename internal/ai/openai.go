package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIGenerator calls an OpenAI-compatible chat-completions endpoint.
type OpenAIGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures the generator.
type OpenAIOption func(*OpenAIGenerator)

// WithBaseURL points the generator at a custom endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if baseURL != "" {
			g.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.httpClient = client
	}
}

// NewOpenAIGenerator constructs the provider.
func NewOpenAIGenerator(apiKey, model string, opts ...OpenAIOption) *OpenAIGenerator {
	g := &OpenAIGenerator{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	body, err := json.Marshal(chatCompletionRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: req.RenderedPrompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	modelID := completion.Model
	if modelID == "" {
		modelID = g.model
	}

	return &Result{
		Text:       completion.Choices[0].Message.Content,
		ProviderID: "OPENAI",
		ModelID:    modelID,
		Attempts:   1,
		LatencyMs:  time.Since(start).Milliseconds(),
		ProviderMetadata: map[string]string{
			"finishReason":     completion.Choices[0].FinishReason,
			"promptTokens":     fmt.Sprintf("%d", completion.Usage.PromptTokens),
			"completionTokens": fmt.Sprintf("%d", completion.Usage.CompletionTokens),
		},
	}, nil
}
