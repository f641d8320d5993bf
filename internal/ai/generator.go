package ai

import "context"

// Model profiles selectable via configuration.
const (
	ProfileLocalFakeSummarizer = "LOCAL_FAKE_SUMMARIZER"
	ProfileOpenAIChat          = "OPENAI_CHAT"
)

// Request carries everything a generation call needs. The rendered prompt is
// server-owned; callers never pass raw user text to the provider.
type Request struct {
	Purpose               string
	PromptTemplateID      string
	PromptTemplateVersion int
	RenderedPrompt        string
	ModelProfile          string
	PolicyVersion         string
	CorrelationID         *string
	Tags                  map[string]string
}

// Result is the provider's answer plus the provenance fields the draft
// records.
type Result struct {
	Text             string
	ProviderID       string
	ModelID          string
	Attempts         int
	LatencyMs        int64
	ProviderMetadata map[string]string
}

// Generator is the boundary to the text-generation collaborator. Any failure
// means "generation failed": the caller must not persist a draft. Retry and
// backoff policy toward an external provider lives behind this interface,
// not in front of it.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
