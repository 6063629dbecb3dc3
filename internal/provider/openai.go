package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// OpenAI wraps the chat completions API
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the OpenAI-compatible client. The key comes from
// opts.APIKey or the OPENAI_API_KEY environment variable.
func NewOpenAI(opts Options) (*OpenAI, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key missing (use --key or OPENAI_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("no model configured, defaulting", "model", model)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name returns the backend identifier
func (o *OpenAI) Name() domain.ProviderName { return domain.ProviderOpenAI }

// Generate implements the Provider interface
func (o *OpenAI) Generate(ctx context.Context, req Request) (*domain.PatchProposal, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a senior engineer fixing broken code."},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("openai call failed: %w", err))
	}

	if len(resp.Choices) == 0 {
		return nil, domain.Errorf(domain.ErrProvider, "openai returned no choices")
	}

	return normalize(req, o.Name(), o.model, resp.Choices[0].Message.Content)
}
