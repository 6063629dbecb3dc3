package rescue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BugRescue/BugRescue/internal/backup"
	"github.com/BugRescue/BugRescue/internal/config"
	"github.com/BugRescue/BugRescue/internal/domain"
)

func newTestScanner(t *testing.T, root string, prov *stubProvider, overrides *config.ProjectOverrides) *Scanner {
	t.Helper()
	return NewScanner(ScannerConfig{
		Controller: newTestController(t, root, prov, ControllerConfig{}),
		Overrides:  overrides,
		Root:       root,
		Provider:   "stub",
	})
}

func TestCollectTargets(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, root, "a.yaml", "x: 1\n")
	writeYAML(t, root, "notes.txt", "skip me")
	if err := os.MkdirAll(filepath.Join(root, backup.DefaultDir), 0755); err != nil {
		t.Fatal(err)
	}
	writeYAML(t, filepath.Join(root, backup.DefaultDir), "old.yaml", "x: 1\n")

	s := newTestScanner(t, root, &stubProvider{}, nil)
	targets, err := s.CollectTargets()
	if err != nil {
		t.Fatalf("CollectTargets() error = %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("targets = %v, want only a.yaml", targets)
	}
	if filepath.Base(targets[0]) != "a.yaml" {
		t.Errorf("target = %s", targets[0])
	}
}

func TestCollectTargetsHonorsIgnore(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, root, "keep.yaml", "x: 1\n")
	writeYAML(t, root, "skip.yaml", "x: 1\n")

	overrides := &config.ProjectOverrides{Ignore: []string{"skip.yaml"}}
	s := newTestScanner(t, root, &stubProvider{}, overrides)

	targets, err := s.CollectTargets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || filepath.Base(targets[0]) != "keep.yaml" {
		t.Errorf("targets = %v, want only keep.yaml", targets)
	}
}

func TestCollectTargetsSingleFile(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "only.yaml", "x: 1\n")

	s := newTestScanner(t, path, &stubProvider{}, nil)
	targets, err := s.CollectTargets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0] != path {
		t.Errorf("targets = %v, want [%s]", targets, path)
	}
}

func TestCollectTargetsUnsupportedFile(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "doc.txt", "hello")

	s := newTestScanner(t, path, &stubProvider{}, nil)
	_, err := s.CollectTargets()
	if domain.KindOf(err) != domain.ErrLanguageDetection {
		t.Errorf("KindOf = %q, want language_detection", domain.KindOf(err))
	}
}

func TestCollectTargetsEmptyTree(t *testing.T) {
	s := newTestScanner(t, t.TempDir(), &stubProvider{}, nil)
	_, err := s.CollectTargets()
	if domain.KindOf(err) != domain.ErrLanguageDetection {
		t.Errorf("KindOf = %q, want language_detection", domain.KindOf(err))
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, root, "clean.yaml", "replicas: 3\n")
	writeYAML(t, root, "broken.yaml", brokenYAML)

	prov := &stubProvider{content: fixedYAML}
	s := newTestScanner(t, root, prov, nil)

	summary, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if summary.ID == "" {
		t.Error("summary should carry a run ID")
	}
	if len(summary.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(summary.Targets))
	}
	if summary.Passed() != 2 {
		t.Errorf("Passed() = %d, want 2 (one clean, one fixed)", summary.Passed())
	}
	if summary.FinishedAt.Before(summary.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}

	byName := map[string]domain.TargetStatus{}
	for _, tr := range summary.Targets {
		byName[filepath.Base(tr.Path)] = tr.Status
	}
	if byName["clean.yaml"] != domain.StatusClean {
		t.Errorf("clean.yaml status = %q", byName["clean.yaml"])
	}
	if byName["broken.yaml"] != domain.StatusFixed {
		t.Errorf("broken.yaml status = %q", byName["broken.yaml"])
	}
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, root, "a.yaml", "x: 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScanner(t, root, &stubProvider{}, nil)
	summary, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(summary.Targets) != 0 {
		t.Errorf("cancelled scan processed %d targets, want 0", len(summary.Targets))
	}
}
