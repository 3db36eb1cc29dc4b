package responder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama generates replies with a local Ollama server.
type Ollama struct {
	llm   *ollama.LLM
	model string
}

// Compile-time check that Ollama implements Responder.
var _ Responder = (*Ollama)(nil)

// NewOllama creates an Ollama responder.
func NewOllama(serverURL, model string) (*Ollama, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	return &Ollama{llm: llm, model: model}, nil
}

// Model returns the configured model name.
func (o *Ollama) Model() string {
	return o.model
}

// Generate produces a reply for the given prompt.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}
