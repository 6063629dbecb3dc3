package rescue

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/BugRescue/BugRescue/internal/backup"
	"github.com/BugRescue/BugRescue/internal/config"
	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/runner"
)

// skipDirs are never descended into during a scan
var skipDirs = map[string]bool{
	backup.DefaultDir: true,
	".git":            true,
	"node_modules":    true,
}

// Scanner walks a project tree and rescues every supported file in
// sequence. One project, one attempt at a time.
type Scanner struct {
	controller *Controller
	overrides  *config.ProjectOverrides
	root       string
	provider   domain.ProviderName
	model      string
	dryRun     bool
}

// ScannerConfig configures a Scanner
type ScannerConfig struct {
	Controller *Controller
	Overrides  *config.ProjectOverrides
	Root       string
	Provider   domain.ProviderName
	Model      string
	DryRun     bool
}

// NewScanner creates a Scanner
func NewScanner(cfg ScannerConfig) *Scanner {
	overrides := cfg.Overrides
	if overrides == nil {
		overrides = &config.ProjectOverrides{}
	}
	return &Scanner{
		controller: cfg.Controller,
		overrides:  overrides,
		root:       cfg.Root,
		provider:   cfg.Provider,
		model:      cfg.Model,
		dryRun:     cfg.DryRun,
	}
}

// CollectTargets returns the scannable files under root in walk order.
// A root that is itself a file yields a single target.
func (s *Scanner) CollectTargets() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if runner.DetectFile(s.root) == domain.LangUnknown {
			return nil, domain.Errorf(domain.ErrLanguageDetection,
				"no supported language for %s", s.root)
		}
		return []string{s.root}, nil
	}

	var targets []string
	err = filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr == nil && s.overrides.Ignored(rel) {
			return nil
		}
		if runner.DetectFile(path) != domain.LangUnknown {
			targets = append(targets, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(targets) == 0 && runner.DetectProject(s.root) == domain.LangUnknown {
		return nil, domain.Errorf(domain.ErrLanguageDetection,
			"no scannable files found in %s", s.root)
	}
	return targets, nil
}

// Scan runs the rescue loop over every target and returns the run
// summary. Targets are processed strictly in sequence.
func (s *Scanner) Scan(ctx context.Context) (*domain.RunSummary, error) {
	targets, err := s.CollectTargets()
	if err != nil {
		return nil, err
	}

	summary := &domain.RunSummary{
		ID:        uuid.NewString(),
		Root:      s.root,
		Provider:  s.provider,
		Model:     s.model,
		DryRun:    s.dryRun,
		StartedAt: time.Now(),
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		lang := runner.DetectFile(target)
		report := s.controller.Rescue(ctx, target, lang)
		summary.Targets = append(summary.Targets, report)
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}
