package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"shannon/internal/generation"
	"shannon/internal/usage"
)

// Gemini asks a Gemini model to write the sentences.
type Gemini struct {
	client *genai.Client
	model  string
	usage  *usage.Tracker
}

// NewGemini creates the backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key missing; set llm.api_key or GEMINI_API_KEY")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// WithUsage records token counts of every response in t.
func (g *Gemini) WithUsage(t *usage.Tracker) *Gemini {
	g.usage = t
	return g
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature(req.Strength))),
	})
	if err != nil {
		return generation.Response{}, fmt.Errorf("gemini: %w", err)
	}
	if g.usage != nil && resp.UsageMetadata != nil {
		g.usage.Track(g.Name(), g.model, req.Strength,
			int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount))
	}
	return generation.Response{Sentences: splitSentences(resp.Text(), req.NumSentences)}, nil
}
