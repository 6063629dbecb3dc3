package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// DefaultOllamaURL is the local generate endpoint; OLLAMA_URL overrides it
const DefaultOllamaURL = "http://localhost:11434/api/generate"

// Ollama talks to a local model server's generate endpoint
type Ollama struct {
	httpClient *http.Client
	url        string
	model      string
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllama creates the local-model client. Resolution order for the
// endpoint: OLLAMA_URL env, opts.BaseURL, built-in default.
func NewOllama(opts Options) *Ollama {
	url := os.Getenv("OLLAMA_URL")
	if url == "" {
		url = opts.BaseURL
	}
	if url == "" {
		url = DefaultOllamaURL
	}
	model := opts.Model
	if model == "" {
		model = "qwen2.5-coder:14b"
	}
	return &Ollama{
		httpClient: &http.Client{Timeout: opts.Timeout},
		url:        strings.TrimSuffix(url, "/"),
		model:      model,
	}
}

// Name returns the backend identifier
func (o *Ollama) Name() domain.ProviderName { return domain.ProviderOllama }

// Generate implements the Provider interface
func (o *Ollama) Generate(ctx context.Context, req Request) (*domain.PatchProposal, error) {
	payload := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: BuildPrompt(req),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "marshaling ollama request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "building ollama request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("ollama call failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("reading ollama response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("ollama model not found", "model", o.model)
				return nil, domain.Errorf(domain.ErrProvider,
					"model %q not found, run: ollama pull %s", o.model, o.model)
			}
		}
		return nil, domain.Errorf(domain.ErrProvider,
			"ollama returned status %d: %s", resp.StatusCode, respBody)
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "parsing ollama response: %v", err)
	}
	if genResp.Error != "" {
		return nil, domain.Errorf(domain.ErrProvider, "ollama error: %s", genResp.Error)
	}

	return normalize(req, o.Name(), o.model, genResp.Response)
}
