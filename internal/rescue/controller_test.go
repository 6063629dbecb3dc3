package rescue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BugRescue/BugRescue/internal/backup"
	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/provider"
	"github.com/BugRescue/BugRescue/internal/runner"
)

// stubProvider returns canned patches, or a provider error when fail is set
type stubProvider struct {
	content string
	fail    bool
	calls   int
}

func (s *stubProvider) Name() domain.ProviderName { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req provider.Request) (*domain.PatchProposal, error) {
	s.calls++
	if s.fail {
		return nil, domain.Errorf(domain.ErrProvider, "stub backend down")
	}
	return &domain.PatchProposal{
		Path:    req.Path,
		Content: s.content,
	}, nil
}

const (
	brokenYAML = "user: admin\npassword: MySecret123\n"
	fixedYAML  = "user: admin\npassword_ref: vault://admin\n"
)

func newTestController(t *testing.T, root string, prov provider.Provider, opts ControllerConfig) *Controller {
	t.Helper()
	opts.Runner = runner.New()
	opts.Provider = prov
	opts.Backups = backup.NewManager(root, "")
	return NewController(opts)
}

func writeYAML(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRescueCleanFile(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "ok.yaml", "replicas: 3\n")
	prov := &stubProvider{}

	c := newTestController(t, root, prov, ControllerConfig{})
	report := c.Rescue(context.Background(), path, domain.LangStatic)

	if report.Status != domain.StatusClean {
		t.Errorf("Status = %q, want CLEAN", report.Status)
	}
	if report.FinalState != domain.StateSuccess {
		t.Errorf("FinalState = %q, want success", report.FinalState)
	}
	if len(report.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(report.Attempts))
	}
	if prov.calls != 0 {
		t.Errorf("provider called %d times for a passing file, want 0", prov.calls)
	}
}

func TestRescueFixesFile(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	prov := &stubProvider{content: fixedYAML}

	c := newTestController(t, root, prov, ControllerConfig{})
	report := c.Rescue(context.Background(), path, domain.LangStatic)

	if report.Status != domain.StatusFixed {
		t.Fatalf("Status = %q, want FIXED", report.Status)
	}
	if len(report.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2 (fail then pass)", len(report.Attempts))
	}
	if prov.calls != 1 {
		t.Errorf("provider calls = %d, want 1", prov.calls)
	}
	if report.Backups != 1 {
		t.Errorf("Backups = %d, want 1", report.Backups)
	}
	if report.Detection != "Hardcoded Secret" {
		t.Errorf("Detection = %q", report.Detection)
	}

	data, _ := os.ReadFile(path)
	if string(data) != fixedYAML {
		t.Errorf("file content = %q, want the patch", data)
	}
}

func TestRescueBackupHoldsOriginal(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	prov := &stubProvider{content: fixedYAML}

	backups := backup.NewManager(root, "")
	c := NewController(ControllerConfig{
		Runner:   runner.New(),
		Provider: prov,
		Backups:  backups,
	})
	c.Rescue(context.Background(), path, domain.LangStatic)

	if !backups.Has(path) {
		t.Fatal("no backup record for the patched file")
	}

	// The snapshot must hold the pre-rescue bytes
	var backupFile string
	filepath.Walk(backups.Dir(), func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			backupFile = p
		}
		return nil
	})
	if backupFile == "" {
		t.Fatal("no backup file on disk")
	}
	data, _ := os.ReadFile(backupFile)
	if string(data) != brokenYAML {
		t.Errorf("backup = %q, want the original content", data)
	}
}

func TestRescueDryRun(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	prov := &stubProvider{content: fixedYAML}

	c := newTestController(t, root, prov, ControllerConfig{DryRun: true, MaxAttempts: 2})
	report := c.Rescue(context.Background(), path, domain.LangStatic)

	// Without writes the lint keeps failing until the budget runs out
	if report.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want FAILED", report.Status)
	}
	if report.Backups != 0 {
		t.Errorf("Backups = %d, want 0 in dry-run", report.Backups)
	}

	data, _ := os.ReadFile(path)
	if string(data) != brokenYAML {
		t.Error("dry-run must not modify the target")
	}
	if _, err := os.Stat(filepath.Join(root, backup.DefaultDir)); !os.IsNotExist(err) {
		t.Error("dry-run must not create the backup directory")
	}

	// The withheld proposals stay recorded in the attempt history
	if len(report.Attempts) != 2 || report.Attempts[0].Patch == nil {
		t.Errorf("attempts should record the proposed patch, got %+v", report.Attempts)
	}
}

func TestRescueProviderFailuresExhaustBudget(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	prov := &stubProvider{fail: true}

	c := newTestController(t, root, prov, ControllerConfig{MaxAttempts: 3})
	report := c.Rescue(context.Background(), path, domain.LangStatic)

	if report.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want FAILED", report.Status)
	}
	if report.FinalState != domain.StateExhausted {
		t.Errorf("FinalState = %q, want exhausted", report.FinalState)
	}
	if len(report.Attempts) != 3 {
		t.Fatalf("attempts = %d, want the full budget of 3", len(report.Attempts))
	}
	for i, a := range report.Attempts {
		if a.ErrorKind != domain.ErrProvider {
			t.Errorf("attempt %d ErrorKind = %q, want provider", i+1, a.ErrorKind)
		}
	}

	data, _ := os.ReadFile(path)
	if string(data) != brokenYAML {
		t.Error("target must stay untouched when every provider call fails")
	}
}

func TestRescueExhaustionClassified(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	// The proposed fix still carries the secret, so every re-run fails
	prov := &stubProvider{content: "user: admin\npassword: OtherSecretValue\n"}

	var last Event
	c := newTestController(t, root, prov, ControllerConfig{
		MaxAttempts: 2,
		OnEvent:     func(e Event) { last = e },
	})
	report := c.Rescue(context.Background(), path, domain.LangStatic)

	if report.Status != domain.StatusFailed {
		t.Fatalf("Status = %q, want FAILED", report.Status)
	}
	if len(report.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(report.Attempts))
	}

	final := report.Attempts[len(report.Attempts)-1]
	if final.ErrorKind != domain.ErrAttemptsExhausted {
		t.Errorf("final attempt ErrorKind = %q, want attempts_exhausted", final.ErrorKind)
	}
	if last.State != domain.StateExhausted || !strings.Contains(last.Message, "after 2 attempts") {
		t.Errorf("final event = %+v", last)
	}
}

func TestRescueUnsupportedLanguage(t *testing.T) {
	root := t.TempDir()
	prov := &stubProvider{}

	c := newTestController(t, root, prov, ControllerConfig{})
	report := c.Rescue(context.Background(), filepath.Join(root, "x.txt"), domain.LangUnknown)

	if report.FinalState != domain.StateDetectionFailed {
		t.Errorf("FinalState = %q, want detection_failed", report.FinalState)
	}
	if report.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want FAILED", report.Status)
	}
	if prov.calls != 0 {
		t.Error("provider must not be called for an unsupported language")
	}
}

func TestRescueEmitsEvents(t *testing.T) {
	root := t.TempDir()
	path := writeYAML(t, root, "bad.yaml", brokenYAML)
	prov := &stubProvider{content: fixedYAML}

	var states []domain.LoopState
	c := newTestController(t, root, prov, ControllerConfig{
		OnEvent: func(e Event) { states = append(states, e.State) },
	})
	c.Rescue(context.Background(), path, domain.LangStatic)

	want := []domain.LoopState{
		domain.StateRunning,
		domain.StateAnalyzing,
		domain.StatePatching,
		domain.StateRunning,
		domain.StateSuccess,
	}
	if len(states) != len(want) {
		t.Fatalf("events = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, states[i], want[i])
		}
	}
}
