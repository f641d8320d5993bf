package ai

import (
	"context"
	"time"
)

// ObserveFunc receives one generation attempt's provider, outcome
// ("ok" or "error") and wall-clock duration.
type ObserveFunc func(provider, outcome string, duration time.Duration)

type instrumentedGenerator struct {
	inner   Generator
	observe ObserveFunc
}

// Instrument wraps a generator so every call is reported to observe.
func Instrument(inner Generator, observe ObserveFunc) Generator {
	if observe == nil {
		return inner
	}
	return &instrumentedGenerator{inner: inner, observe: observe}
}

func (g *instrumentedGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result, err := g.inner.Generate(ctx, req)

	provider := "unknown"
	outcome := "ok"
	if err != nil {
		outcome = "error"
		provider = req.ModelProfile
	} else if result != nil {
		provider = result.ProviderID
	}
	g.observe(provider, outcome, time.Since(start))
	return result, err
}
