package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case EventMsg:
		m.applyEvent(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		if m.summary != nil {
			for _, tr := range m.summary.Targets {
				if fv, ok := m.index[tr.Path]; ok {
					fv.Status = tr.Status
					fv.State = tr.FinalState
					fv.Attempt = len(tr.Attempts)
				}
			}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.scroll < len(m.files)-1 {
			m.scroll++
		}
	case "k", "up":
		if m.scroll > 0 {
			m.scroll--
		}
	case "g":
		m.scroll = 0
	}
	return m, nil
}

func (m *Model) applyEvent(ev EventMsg) {
	fv, ok := m.index[ev.Path]
	if !ok {
		fv = &FileView{Path: ev.Path}
		m.files = append(m.files, fv)
		m.index[ev.Path] = fv
	}
	fv.State = ev.State
	if ev.Attempt > fv.Attempt {
		fv.Attempt = ev.Attempt
	}
	switch ev.State {
	case domain.StateSuccess:
		if fv.Attempt <= 1 {
			fv.Status = domain.StatusClean
		} else {
			fv.Status = domain.StatusFixed
		}
	case domain.StateExhausted, domain.StateDetectionFailed:
		fv.Status = domain.StatusFailed
	}
}
