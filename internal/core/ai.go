package core

import "context"

// ImageInput is an image handed to a generative model alongside a prompt.
type ImageInput struct {
	MIMEType string
	Base64   string
}

type EmbeddingProvider interface {
	// EmbedTexts returns one vector per text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string, images []ImageInput) (string, error)
}
