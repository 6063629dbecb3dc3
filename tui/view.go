package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/BugRescue/BugRescue/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cleanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	fixedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	mode := ""
	if m.dryRun {
		mode = " (dry run)"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("BugRescue — %s%s", m.root, mode)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("provider: %s   elapsed: %s", m.provider, time.Since(m.startedAt).Round(time.Second))))
	b.WriteString("\n\n")

	finished := 0
	for _, fv := range m.files {
		if fv.Status != "" {
			finished++
		}
	}
	b.WriteString(m.progressBar(finished, len(m.files)))
	b.WriteString("\n\n")

	rows := m.visibleRows()
	for _, fv := range rows {
		b.WriteString(renderFile(fv))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(footerStyle.Render(m.summaryLine() + "   press q to quit"))
	} else {
		b.WriteString(footerStyle.Render("j/k scroll · q quit"))
	}
	return b.String()
}

func (m Model) progressBar(done, total int) string {
	width := 40
	if total == 0 {
		total = 1
	}
	filled := done * width / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}

func (m Model) visibleRows() []*FileView {
	maxRows := m.height - 8
	if maxRows < 1 {
		maxRows = len(m.files)
	}
	start := m.scroll
	if start > len(m.files) {
		start = len(m.files)
	}
	end := start + maxRows
	if end > len(m.files) {
		end = len(m.files)
	}
	return m.files[start:end]
}

func renderFile(fv *FileView) string {
	glyph, style := fileGlyph(fv)
	line := fmt.Sprintf("%s %s", glyph, fv.Path)
	if fv.Attempt > 0 {
		line += fmt.Sprintf("  (attempt %d)", fv.Attempt)
	}
	if fv.Status == "" && fv.State != domain.StateIdle {
		line += "  " + stateLabel(fv.State)
	}
	return style.Render(line)
}

func fileGlyph(fv *FileView) (string, lipgloss.Style) {
	switch fv.Status {
	case domain.StatusClean:
		return "✓", cleanStyle
	case domain.StatusFixed:
		return "✓", fixedStyle
	case domain.StatusFailed:
		return "✗", failedStyle
	}
	if fv.State == domain.StateIdle {
		return "·", idleStyle
	}
	return "▸", activeStyle
}

func stateLabel(s domain.LoopState) string {
	switch s {
	case domain.StateRunning:
		return "running"
	case domain.StateAnalyzing:
		return "analyzing"
	case domain.StatePatching:
		return "patching"
	}
	return string(s)
}

func (m Model) summaryLine() string {
	if m.summary == nil {
		return "finished"
	}
	return fmt.Sprintf("finished: %d passed, %d failed", m.summary.Passed(), m.summary.Failed())
}
