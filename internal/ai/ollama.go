package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/hochfrequenz/test-enhancer/internal/prompts"
)

// OllamaAdapter generates test suggestions against a local Ollama instance
type OllamaAdapter struct {
	client  *api.Client
	model   string
	prompts *prompts.Loader
}

// NewOllamaAdapter creates an adapter for the given model. An empty host
// falls back to the OLLAMA_HOST environment, matching the client's default
// resolution.
func NewOllamaAdapter(host, model string) (*OllamaAdapter, error) {
	loader := prompts.DefaultLoader()

	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("creating ollama client: %w", err)
		}
		return &OllamaAdapter{client: client, model: model, prompts: loader}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host %q: %w", host, err)
	}
	return &OllamaAdapter{client: api.NewClient(u, http.DefaultClient), model: model, prompts: loader}, nil
}

// GenerateSuggestions calls the model with the test and source content and
// collects the full response.
func (a *OllamaAdapter) GenerateSuggestions(ctx context.Context, testContent, sourceContent string) (string, error) {
	system, err := a.prompts.LoadRaw("generate/system.md")
	if err != nil {
		return "", fmt.Errorf("loading system prompt: %w", err)
	}

	prompt, err := a.prompts.Execute("generate/enhance.md", map[string]string{
		"SourceContent": sourceContent,
		"TestContent":   testContent,
	})
	if err != nil {
		return "", fmt.Errorf("building prompt: %w", err)
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  a.model,
		System: system,
		Prompt: prompt,
		Stream: &stream,
	}

	var sb strings.Builder
	err = a.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return sb.String(), nil
}
