// Package backup snapshots files before the patch applier touches them
// and restores them on explicit user rollback.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultDir is the backup directory created inside the project root
const DefaultDir = ".bugrescue_backups"

// Record associates an original file path with its timestamped copy.
// Records are never deleted automatically.
type Record struct {
	OriginalPath string
	BackupPath   string
	CreatedAt    time.Time
}

// Manager creates and restores snapshots for a single rescue run.
// All snapshots of one run share a timestamp-named directory.
type Manager struct {
	root    string // project root
	dir     string // backup directory for this run
	records map[string]Record
	mu      sync.Mutex
}

// NewManager creates a Manager whose snapshots land in
// <root>/<backupDir>/<timestamp>/
func NewManager(root, backupDir string) *Manager {
	if backupDir == "" {
		backupDir = DefaultDir
	}
	ts := time.Now().Format("20060102_150405")
	return &Manager{
		root:    root,
		dir:     filepath.Join(root, backupDir, ts),
		records: make(map[string]Record),
	}
}

// Dir returns the backup directory for this run
func (m *Manager) Dir() string {
	return m.dir
}

// Snapshot copies the current bytes of path into the backup directory,
// mirroring its location relative to the project root. Snapshotting the
// same path twice in one run returns the existing record, so the first
// (pre-rescue) version is what a rollback restores.
func (m *Manager) Snapshot(path string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[path]; ok {
		return rec, nil
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Outside the root: fall back to the basename
		rel = filepath.Base(path)
	}

	dst := filepath.Join(m.dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Record{}, fmt.Errorf("creating backup dir: %w", err)
	}

	if err := copyFile(path, dst); err != nil {
		return Record{}, fmt.Errorf("snapshotting %s: %w", path, err)
	}

	rec := Record{
		OriginalPath: path,
		BackupPath:   dst,
		CreatedAt:    time.Now(),
	}
	m.records[path] = rec
	return rec, nil
}

// Has reports whether a record exists for the exact path in this run
func (m *Manager) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[path]
	return ok
}

// Count returns the number of snapshots taken in this run
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Restore copies the snapshot bytes back over the original file
func Restore(rec Record) error {
	if err := copyFile(rec.BackupPath, rec.OriginalPath); err != nil {
		return fmt.Errorf("restoring %s: %w", rec.OriginalPath, err)
	}
	return nil
}

// RestoreDir walks a run's backup directory and restores every snapshot
// into the project root. Used by the restore CLI command.
func RestoreDir(backupDir, root string) (int, error) {
	restored := 0
	err := filepath.Walk(backupDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(backupDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := copyFile(path, dst); err != nil {
			return err
		}
		restored++
		return nil
	})
	if err != nil {
		return restored, fmt.Errorf("restoring from %s: %w", backupDir, err)
	}
	return restored, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
