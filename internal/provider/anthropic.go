package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/BugRescue/BugRescue/internal/domain"
)

const (
	anthropicURL        = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic talks to the messages API
type Anthropic struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropic creates the Anthropic-compatible client. The key comes
// from opts.APIKey or the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(opts Options) (*Anthropic, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key missing (use --key or ANTHROPIC_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}

	url := opts.BaseURL
	if url == "" {
		url = anthropicURL
	}

	return &Anthropic{
		httpClient: &http.Client{Timeout: opts.Timeout},
		url:        url,
		apiKey:     apiKey,
		model:      model,
	}, nil
}

// Name returns the backend identifier
func (a *Anthropic) Name() domain.ProviderName { return domain.ProviderAnthropic }

// Generate implements the Provider interface
func (a *Anthropic) Generate(ctx context.Context, req Request) (*domain.PatchProposal, error) {
	payload := anthropicRequest{
		Model:     a.model,
		MaxTokens: 8192,
		Messages: []anthropicMessage{
			{Role: "user", Content: BuildPrompt(req)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "marshaling anthropic request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "building anthropic request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("anthropic call failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("reading anthropic response: %w", err))
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "parsing anthropic response: %v", err)
	}

	if msgResp.Error != nil {
		return nil, domain.Errorf(domain.ErrProvider,
			"anthropic error (%s): %s", msgResp.Error.Type, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Errorf(domain.ErrProvider,
			"anthropic returned status %d: %s", resp.StatusCode, respBody)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, domain.Errorf(domain.ErrProvider, "anthropic returned no text content")
	}

	return normalize(req, a.Name(), a.model, text)
}
