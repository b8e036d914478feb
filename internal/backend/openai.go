package backend

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"shannon/internal/generation"
	"shannon/internal/usage"
)

// OpenAI asks a chat-completions model to write the sentences.
type OpenAI struct {
	client openai.Client
	model  string
	usage  *usage.Tracker
}

// NewOpenAI creates the backend. baseURL may be empty.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; set llm.api_key or OPENAI_API_KEY")
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

// WithUsage records token counts of every completion in t.
func (o *OpenAI) WithUsage(t *usage.Tracker) *OpenAI {
	o.usage = t
	return o
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		Temperature: openai.Float(temperature(req.Strength)),
	})
	if err != nil {
		return generation.Response{}, fmt.Errorf("openai: %w", err)
	}
	if o.usage != nil {
		o.usage.Track(o.Name(), o.model, req.Strength, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if len(resp.Choices) == 0 {
		return generation.Response{}, errors.New("openai: empty choices")
	}
	return generation.Response{Sentences: splitSentences(resp.Choices[0].Message.Content, req.NumSentences)}, nil
}
