package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotCopiesOriginal(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "sub", "main.py")
	writeFile(t, target, "original")

	m := NewManager(root, "")
	rec, err := m.Snapshot(target)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	data, err := os.ReadFile(rec.BackupPath)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("backup content = %q, want original", data)
	}
	if !strings.Contains(rec.BackupPath, DefaultDir) {
		t.Errorf("backup path %q not under %s", rec.BackupPath, DefaultDir)
	}
	// Relative layout is mirrored under the run directory
	if filepath.Base(filepath.Dir(rec.BackupPath)) != "sub" {
		t.Errorf("backup should mirror sub/, got %s", rec.BackupPath)
	}
}

func TestSnapshotIdempotentPerRun(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.py")
	writeFile(t, target, "v1")

	m := NewManager(root, "")
	first, err := m.Snapshot(target)
	if err != nil {
		t.Fatal(err)
	}

	// The file changes; a second snapshot must keep the first copy
	writeFile(t, target, "v2")
	second, err := m.Snapshot(target)
	if err != nil {
		t.Fatal(err)
	}
	if first.BackupPath != second.BackupPath {
		t.Error("second snapshot should return the existing record")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	data, _ := os.ReadFile(first.BackupPath)
	if string(data) != "v1" {
		t.Errorf("backup content = %q, want the pre-rescue version v1", data)
	}
}

func TestRestore(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.py")
	writeFile(t, target, "good")

	m := NewManager(root, "")
	rec, err := m.Snapshot(target)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, target, "broken patch")
	if err := Restore(rec); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "good" {
		t.Errorf("restored content = %q, want good", data)
	}
}

func TestRestoreDir(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "lib", "b.py")
	writeFile(t, a, "a-orig")
	writeFile(t, b, "b-orig")

	m := NewManager(root, "")
	for _, p := range []string{a, b} {
		if _, err := m.Snapshot(p); err != nil {
			t.Fatal(err)
		}
	}

	writeFile(t, a, "a-patched")
	writeFile(t, b, "b-patched")

	n, err := RestoreDir(m.Dir(), root)
	if err != nil {
		t.Fatalf("RestoreDir() error = %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d files, want 2", n)
	}

	for path, want := range map[string]string{a: "a-orig", b: "b-orig"} {
		data, _ := os.ReadFile(path)
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}
}
