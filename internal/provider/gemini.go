package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/BugRescue/BugRescue/internal/domain"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini talks to the generateContent endpoint
type Gemini struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGemini creates the Gemini-compatible client. The key comes from
// opts.APIKey or the GEMINI_API_KEY environment variable.
func NewGemini(opts Options) (*Gemini, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key missing (use --key or GEMINI_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	return &Gemini{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}, nil
}

// Name returns the backend identifier
func (g *Gemini) Name() domain.ProviderName { return domain.ProviderGemini }

// Generate implements the Provider interface
func (g *Gemini) Generate(ctx context.Context, req Request) (*domain.PatchProposal, error) {
	payload := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: BuildPrompt(req)}}},
		},
		GenerationConfig: geminiGenConfig{Temperature: 0.2},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "marshaling gemini request: %v", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "building gemini request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("gemini call failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("reading gemini response: %w", err))
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, domain.Errorf(domain.ErrProvider, "parsing gemini response: %v", err)
	}

	if genResp.Error != nil {
		return nil, domain.Errorf(domain.ErrProvider,
			"gemini error (%s): %s", genResp.Error.Status, genResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Errorf(domain.ErrProvider,
			"gemini returned status %d: %s", resp.StatusCode, respBody)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, domain.Errorf(domain.ErrProvider, "gemini returned no candidates")
	}

	var text string
	for _, part := range genResp.Candidates[0].Content.Parts {
		text += part.Text
	}

	return normalize(req, g.Name(), g.model, text)
}
