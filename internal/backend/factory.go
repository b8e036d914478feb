package backend

import (
	"context"
	"fmt"

	"shannon/internal/config"
	"shannon/internal/generation"
	"shannon/internal/usage"
)

// New builds the backend named by server.backend. LLM backends record token
// usage in the tracker carried by ctx, if any.
func New(ctx context.Context, cfg *config.Config) (generation.Generator, error) {
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	switch cfg.Server.Backend {
	case "", "ngram":
		return NewNGram(NGramOptions{
			MaxConcurrent: cfg.Server.MaxConcurrent,
			ByChar:        cfg.Server.ByChar,
		}), nil
	case "openai":
		o, err := NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
		if err != nil {
			return nil, err
		}
		return o.WithUsage(usage.FromContext(ctx)), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		return g.WithUsage(usage.FromContext(ctx)), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Server.Backend)
	}
}
