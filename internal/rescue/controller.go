// Package rescue drives the run -> analyze -> patch retry loop over the
// files of a target project.
package rescue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BugRescue/BugRescue/internal/backup"
	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/provider"
	"github.com/BugRescue/BugRescue/internal/runner"
)

// Event describes a state change in the retry loop, for the TUI, the
// status server and the CLI progress output
type Event struct {
	Path    string
	State   domain.LoopState
	Attempt int
	Message string
}

// EventFunc receives loop events; may be nil
type EventFunc func(Event)

// Controller runs the bounded fix loop for one file at a time.
// Exactly one attempt is in flight at any moment.
type Controller struct {
	runner      *runner.Runner
	prov        provider.Provider
	backups     *backup.Manager
	maxAttempts int
	dryRun      bool
	maxErrBytes int
	onEvent     EventFunc
}

// ControllerConfig configures a Controller
type ControllerConfig struct {
	Runner        *runner.Runner
	Provider      provider.Provider
	Backups       *backup.Manager
	MaxAttempts   int
	DryRun        bool
	MaxErrorBytes int
	OnEvent       EventFunc
}

// NewController creates a Controller
func NewController(cfg ControllerConfig) *Controller {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	maxErrBytes := cfg.MaxErrorBytes
	if maxErrBytes <= 0 {
		maxErrBytes = 1500
	}
	return &Controller{
		runner:      cfg.Runner,
		prov:        cfg.Provider,
		backups:     cfg.Backups,
		maxAttempts: maxAttempts,
		dryRun:      cfg.DryRun,
		maxErrBytes: maxErrBytes,
		onEvent:     cfg.OnEvent,
	}
}

// Rescue executes the retry loop for a single file and returns its
// attempt history. The loop terminates on the first passing run, on a
// terminal error, or when the attempt budget is exhausted.
func (c *Controller) Rescue(ctx context.Context, path string, lang domain.Language) domain.TargetReport {
	report := domain.TargetReport{
		Path:       path,
		Language:   lang,
		FinalState: domain.StateIdle,
	}

	if !runner.Supported(lang) {
		report.Status = domain.StatusFailed
		report.FinalState = domain.StateDetectionFailed
		report.Detection = "unsupported language"
		return report
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		entry := domain.Attempt{Number: attempt, StartedAt: time.Now()}

		// Running
		c.emit(Event{Path: path, State: domain.StateRunning, Attempt: attempt})
		report.FinalState = domain.StateRunning
		res, err := c.runner.RunAs(ctx, path, lang)
		if err != nil {
			// Toolchain missing or unreadable file: terminal
			entry.ErrorKind = domain.KindOf(err)
			if entry.ErrorKind == domain.ErrNone {
				entry.ErrorKind = domain.ErrLanguageDetection
			}
			entry.ErrorText = err.Error()
			report.Attempts = append(report.Attempts, entry)
			report.Status = domain.StatusFailed
			report.FinalState = domain.StateDetectionFailed
			report.Detection = err.Error()
			return report
		}
		entry.Result = res

		if res.Passed() {
			report.Attempts = append(report.Attempts, entry)
			report.FinalState = domain.StateSuccess
			if attempt == 1 {
				report.Status = domain.StatusClean
			} else {
				report.Status = domain.StatusFixed
			}
			c.emit(Event{Path: path, State: domain.StateSuccess, Attempt: attempt})
			return report
		}

		if res.TimedOut {
			entry.ErrorKind = domain.ErrRunTimeout
			entry.ErrorText = "run timed out"
		}
		if report.Detection == "" {
			report.Detection = res.ErrorText()
		}

		// Analyzing
		c.emit(Event{Path: path, State: domain.StateAnalyzing, Attempt: attempt})
		report.FinalState = domain.StateAnalyzing
		patch, err := c.analyze(ctx, path, lang, res)
		if err != nil {
			entry.ErrorKind = domain.KindOf(err)
			entry.ErrorText = err.Error()
			report.Attempts = append(report.Attempts, entry)
			if domain.IsTerminal(err) {
				report.Status = domain.StatusFailed
				report.FinalState = domain.StateExhausted
				c.emit(Event{Path: path, State: domain.StateExhausted, Attempt: attempt, Message: err.Error()})
				return report
			}
			// Non-terminal failures burn the attempt and loop back around
			slog.Warn("provider attempt failed", "path", path, "attempt", attempt, "error", err)
			continue
		}
		entry.Patch = patch

		// Patching
		c.emit(Event{Path: path, State: domain.StatePatching, Attempt: attempt})
		report.FinalState = domain.StatePatching
		if err := c.apply(patch); err != nil {
			entry.ErrorKind = domain.ErrPatchApply
			entry.ErrorText = err.Error()
			report.Attempts = append(report.Attempts, entry)
			report.Status = domain.StatusFailed
			report.FinalState = domain.StateExhausted
			c.emit(Event{Path: path, State: domain.StateExhausted, Attempt: attempt, Message: err.Error()})
			return report
		}
		report.Backups = c.backupCount(path)

		report.Attempts = append(report.Attempts, entry)
	}

	exhausted := domain.Errorf(domain.ErrAttemptsExhausted,
		"no passing run after %d attempts", c.maxAttempts)
	// Surface the exhaustion in the classified-error history unless the
	// final attempt already failed for a more specific reason
	if n := len(report.Attempts); n > 0 && report.Attempts[n-1].ErrorKind == domain.ErrNone {
		report.Attempts[n-1].ErrorKind = domain.ErrAttemptsExhausted
		report.Attempts[n-1].ErrorText = exhausted.Error()
	}
	report.Status = domain.StatusFailed
	report.FinalState = domain.StateExhausted
	c.emit(Event{Path: path, State: domain.StateExhausted, Attempt: c.maxAttempts, Message: exhausted.Error()})
	return report
}

// analyze reads the source and asks the provider for a patch
func (c *Controller) analyze(ctx context.Context, path string, lang domain.Language, res domain.RunResult) (*domain.PatchProposal, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.ErrProvider, fmt.Errorf("reading source: %w", err))
	}

	return c.prov.Generate(ctx, provider.Request{
		Path:     path,
		Source:   string(source),
		Error:    provider.TruncateError(res.ErrorText(), c.maxErrBytes),
		Language: lang,
	})
}

// apply snapshots the target and writes the proposed content.
// In dry-run mode the write is withheld; the proposal stays recorded in
// the attempt history as what would have changed.
func (c *Controller) apply(patch *domain.PatchProposal) error {
	if c.dryRun {
		return nil
	}

	if _, err := c.backups.Snapshot(patch.Path); err != nil {
		return domain.NewError(domain.ErrPatchApply, err)
	}

	info, err := os.Stat(patch.Path)
	if err != nil {
		return domain.NewError(domain.ErrPatchApply, err)
	}

	if err := os.WriteFile(patch.Path, []byte(patch.Content), info.Mode().Perm()); err != nil {
		return domain.NewError(domain.ErrPatchApply, err)
	}
	return nil
}

func (c *Controller) backupCount(path string) int {
	if c.backups != nil && c.backups.Has(path) {
		return 1
	}
	return 0
}

func (c *Controller) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}
