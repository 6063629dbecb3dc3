package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BugRescue/BugRescue/internal/domain"
)

func sampleSummary() *domain.RunSummary {
	return &domain.RunSummary{
		ID:         "run-1",
		Root:       "/proj",
		FinishedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Targets: []domain.TargetReport{
			{
				Path:     "/proj/clean.py",
				Status:   domain.StatusClean,
				Attempts: []domain.Attempt{{Number: 1}},
			},
			{
				Path:      "/proj/fixed.py",
				Status:    domain.StatusFixed,
				Detection: "NameError: name 'x' is not defined",
				Backups:   1,
				Attempts:  []domain.Attempt{{Number: 1}, {Number: 2}},
			},
			{
				Path:      "/proj/hopeless.py",
				Status:    domain.StatusFailed,
				Detection: "SyntaxError",
				Attempts: []domain.Attempt{
					{Number: 1, ErrorKind: domain.ErrProvider, ErrorText: "backend down"},
				},
			},
		},
	}
}

func TestRender(t *testing.T) {
	data, err := Render(sampleSummary())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"BugRescue Audit Report",
		"clean.py", "fixed.py", "hopeless.py",
		"CLEAN", "FIXED", "FAILED",
		"NameError",
		"Classified Errors",
		"provider", "backend down",
		"2026-08-30 12:00:00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderShowsBackupCount(t *testing.T) {
	data, err := Render(sampleSummary())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := string(data)

	if !strings.Contains(html, "<th>Backups</th>") {
		t.Error("audit table missing the Backups column")
	}
	// The FIXED target has one snapshot; its row must show it
	if !strings.Contains(html, "<td>fixed.py</td>") {
		t.Fatal("fixed.py row missing")
	}
	rowStart := strings.Index(html, "<td>fixed.py</td>")
	rowEnd := strings.Index(html[rowStart:], "</tr>")
	if rowEnd < 0 || !strings.Contains(html[rowStart:rowStart+rowEnd], "<td>1</td>") {
		t.Errorf("fixed.py row does not show its backup count:\n%s", html[rowStart:rowStart+rowEnd])
	}
}

func TestRenderDryRun(t *testing.T) {
	s := sampleSummary()
	s.DryRun = true

	data, err := Render(s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dry run, no files modified") {
		t.Error("dry-run marker missing")
	}
}

func TestRenderTruncatesDetection(t *testing.T) {
	s := sampleSummary()
	s.Targets[1].Detection = strings.Repeat("e", 500)

	data, err := Render(s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), strings.Repeat("e", 121)) {
		t.Error("detection text should be capped")
	}
}

func TestWrite(t *testing.T) {
	root := t.TempDir()

	path, err := Write(sampleSummary(), root)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Errorf("path = %s, want %s", path, FileName)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("path %s should be absolute", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "clean.py") {
		t.Error("written report missing content")
	}
}
