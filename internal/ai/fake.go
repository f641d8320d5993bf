package ai

import (
	"context"
	"fmt"
	"time"
)

// FakeGenerator produces deterministic-shaped output without any external
// provider. Default profile for development and tests.
type FakeGenerator struct{}

// NewFakeGenerator constructs the fake provider.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{}
}

// Generate implements Generator.
func (g *FakeGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	text := fmt.Sprintf(
		"Summary: This is a locally generated internal case summary for a regulated workflow. "+
			"It is based on the latest case fields and recent notes/events provided to the generator. "+
			"No external provider was called.\n\n"+
			"Key facts:\n"+
			"- Purpose: %s\n"+
			"- Prompt template: %s v%d\n"+
			"- Generated at: %s\n\n"+
			"Risks/Unknowns:\n"+
			"- This environment is using a local fake generator (no external model).\n",
		req.Purpose,
		req.PromptTemplateID,
		req.PromptTemplateVersion,
		time.Now().UTC().Format(time.RFC3339),
	)

	return &Result{
		Text:       text,
		ProviderID: "FAKE",
		ModelID:    "local-fake-v1",
		Attempts:   1,
		LatencyMs:  time.Since(start).Milliseconds(),
		ProviderMetadata: map[string]string{
			"policyVersion": req.PolicyVersion,
			"note":          "local mode - no external provider",
		},
	}, nil
}
