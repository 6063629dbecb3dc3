// Package provider implements the uniform client over the supported AI
// backends. Each backend maps the shared request shape to its own wire
// format and normalizes the reply into a patch proposal.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// Request is the shared shape sent to every backend
type Request struct {
	Path     string // target file, carried into the proposal
	Source   string
	Error    string // failing run output, already truncated by the caller
	Language domain.Language
}

// Provider generates a patch proposal from an error context
type Provider interface {
	// Name returns the backend identifier
	Name() domain.ProviderName
	// Generate sends the request and returns the normalized proposal.
	// Network, auth and malformed-response failures come back as
	// domain.ErrProvider classified errors.
	Generate(ctx context.Context, req Request) (*domain.PatchProposal, error)
}

// Options configures a backend client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string // local backends only
	Timeout time.Duration
}

// minPatchBytes rejects degenerate replies; anything this short is
// noise, not code
const minPatchBytes = 10

// New constructs the backend named in cfg
func New(cfg domain.ProviderConfig, opts Options) (Provider, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if cfg.Model != "" {
		opts.Model = cfg.Model
	}
	if cfg.APIKey != "" {
		opts.APIKey = cfg.APIKey
	}

	switch cfg.Name {
	case domain.ProviderOllama, "":
		return NewOllama(opts), nil
	case domain.ProviderOpenAI:
		return NewOpenAI(opts)
	case domain.ProviderAnthropic:
		return NewAnthropic(opts)
	case domain.ProviderGemini:
		return NewGemini(opts)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}

// normalize turns a raw model reply into a proposal, rejecting
// degenerate output as a provider error
func normalize(req Request, name domain.ProviderName, model, raw string) (*domain.PatchProposal, error) {
	code := ExtractCode(raw)
	if len(code) <= minPatchBytes {
		return nil, domain.Errorf(domain.ErrProvider,
			"%s returned no usable code (%d bytes)", name, len(code))
	}
	return &domain.PatchProposal{
		Path:     req.Path,
		Content:  code,
		Provider: name,
		Model:    model,
	}, nil
}
