// Package tui renders a live dashboard for a rescue run.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/rescue"
)

// FileView represents one target in the dashboard
type FileView struct {
	Path    string
	State   domain.LoopState
	Attempt int
	Status  domain.TargetStatus
}

// Model is the TUI application model
type Model struct {
	// Data
	files []*FileView
	index map[string]*FileView

	// Run state
	root     string
	provider string
	dryRun   bool
	done     bool
	summary  *domain.RunSummary

	// UI state
	width  int
	height int
	scroll int

	startedAt time.Time
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Root     string
	Provider string
	DryRun   bool
	Targets  []string
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	files := make([]*FileView, 0, len(cfg.Targets))
	index := make(map[string]*FileView, len(cfg.Targets))
	for _, t := range cfg.Targets {
		fv := &FileView{Path: t, State: domain.StateIdle}
		files = append(files, fv)
		index[t] = fv
	}

	return Model{
		files:     files,
		index:     index,
		root:      cfg.Root,
		provider:  cfg.Provider,
		dryRun:    cfg.DryRun,
		startedAt: time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg triggers a refresh
type TickMsg time.Time

// EventMsg carries a rescue loop event into the dashboard
type EventMsg rescue.Event

// DoneMsg signals that the rescue run has finished
type DoneMsg struct {
	Summary *domain.RunSummary
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Summary returns the final run summary once the run is done
func (m Model) Summary() *domain.RunSummary {
	return m.summary
}
