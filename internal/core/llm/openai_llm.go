package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

var _ core.LLMProvider = (*OpenAILLM)(nil)

type OpenAILLM struct {
	client llms.Model
}

func NewOpenAILLM(apiKey, baseURL, model string) (*OpenAILLM, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return &OpenAILLM{client: client}, nil
}

// Generate sends images as data URLs next to the user prompt.
func (o *OpenAILLM) Generate(ctx context.Context, systemPrompt, userPrompt string, images []core.ImageInput) (string, error) {
	return generateWith(ctx, o.client, systemPrompt, userPrompt, images)
}

func generateWith(ctx context.Context, model llms.Model, systemPrompt, userPrompt string, images []core.ImageInput) (string, error) {
	human := []llms.ContentPart{llms.TextPart(userPrompt)}
	for _, img := range images {
		human = append(human, llms.ImageURLPart(dataURL(img)))
	}

	var content []llms.MessageContent
	if systemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: human})

	resp, err := model.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
