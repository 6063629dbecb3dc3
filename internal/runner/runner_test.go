package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BugRescue/BugRescue/internal/domain"
)

func writeTarget(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUnknownLanguage(t *testing.T) {
	path := writeTarget(t, "notes.txt", "hello")

	_, err := New().Run(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if domain.KindOf(err) != domain.ErrLanguageDetection {
		t.Errorf("KindOf = %q, want language_detection", domain.KindOf(err))
	}
}

func TestStaticLintSecret(t *testing.T) {
	path := writeTarget(t, "deploy.yaml", "user: admin\npassword: MySecret123\n")

	res, err := New().Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Passed() {
		t.Error("hardcoded secret should fail the lint")
	}
	if res.Output != "Hardcoded Secret" {
		t.Errorf("Output = %q, want Hardcoded Secret", res.Output)
	}
}

func TestStaticLintClean(t *testing.T) {
	path := writeTarget(t, "deploy.yaml", "replicas: 3\n")

	res, err := New().Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Passed() {
		t.Errorf("clean yaml should pass, got exit %d %q", res.ExitCode, res.Output)
	}
	if res.Output != "Valid" {
		t.Errorf("Output = %q, want Valid", res.Output)
	}
}

func TestCommandOverride(t *testing.T) {
	path := writeTarget(t, "run.sh", "exit 7\n")

	// Override replaces the bash invocation entirely
	r := New(WithCommandOverrides(map[string][]string{
		"shell": {"true"},
	}))
	res, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Passed() {
		t.Errorf("override command should pass, got exit %d", res.ExitCode)
	}
}

func TestRunCapturesExitCode(t *testing.T) {
	path := writeTarget(t, "fail.sh", "echo boom >&2\nexit 3\n")

	res, err := New().Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Output != "boom" {
		t.Errorf("Output = %q, want boom (stderr preferred)", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	path := writeTarget(t, "slow.sh", "sleep 5\n")

	r := New(WithTimeout(100 * time.Millisecond))
	res, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if res.ExitCode != 124 {
		t.Errorf("ExitCode = %d, want 124", res.ExitCode)
	}
	if res.ErrorText() != "TIMEOUT" {
		t.Errorf("ErrorText() = %q, want TIMEOUT", res.ErrorText())
	}
}

func TestMaxOutputKeepsTail(t *testing.T) {
	path := writeTarget(t, "noisy.sh", "printf 'aaaaabbbbb' >&2\nexit 1\n")

	r := New(WithMaxOutput(5))
	res, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Output != "bbbbb" {
		t.Errorf("Output = %q, want the last 5 bytes", res.Output)
	}
}

func TestBinaryPathOutsideSourceTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "main.rs")

	bin := binaryPath(src)
	if strings.HasPrefix(bin, filepath.Dir(src)+string(filepath.Separator)) {
		t.Errorf("compile output %s must not land next to the source", bin)
	}
	if bin != binaryPath(src) {
		t.Error("binaryPath must be stable for the same source file")
	}

	// Same base name in a different directory must not collide
	other := filepath.Join(t.TempDir(), "main.rs")
	if binaryPath(other) == bin {
		t.Error("distinct source files map to the same binary")
	}
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs([]string{"pytest", "-x", "{file}"}, "/tmp/a.py")
	if got[2] != "/tmp/a.py" {
		t.Errorf("expandArgs = %v", got)
	}
}
