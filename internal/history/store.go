// Package history persists rescue runs to SQLite so past audits can be
// listed, re-rendered and served.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a full run summary with its targets and attempts
func (s *Store) SaveRun(summary *domain.RunSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, root, provider, model, dry_run, started_at, finished_at, passed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.ID,
		summary.Root,
		string(summary.Provider),
		summary.Model,
		summary.DryRun,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Passed(),
		summary.Failed(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, t := range summary.Targets {
		res, err := tx.Exec(`
			INSERT INTO targets (run_id, path, language, status, final_state, detection, backups)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			summary.ID,
			t.Path,
			string(t.Language),
			string(t.Status),
			string(t.FinalState),
			t.Detection,
			t.Backups,
		)
		if err != nil {
			return fmt.Errorf("inserting target %s: %w", t.Path, err)
		}

		targetID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, a := range t.Attempts {
			_, err := tx.Exec(`
				INSERT INTO attempts (target_id, number, exit_code, timed_out, error_kind, error_text, patched, started_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				targetID,
				a.Number,
				a.Result.ExitCode,
				a.Result.TimedOut,
				string(a.ErrorKind),
				a.ErrorText,
				a.Patch != nil,
				a.StartedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting attempt %d for %s: %w", a.Number, t.Path, err)
			}
		}
	}

	return tx.Commit()
}

// RunRecord is a stored run's header row
type RunRecord struct {
	ID         string
	Root       string
	Provider   string
	Model      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Passed     int
	Failed     int
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, root, provider, model, dry_run, started_at, finished_at, passed, failed
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var model sql.NullString
		if err := rows.Scan(&r.ID, &r.Root, &r.Provider, &model, &r.DryRun,
			&r.StartedAt, &r.FinishedAt, &r.Passed, &r.Failed); err != nil {
			return nil, err
		}
		if model.Valid {
			r.Model = model.String
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun reconstructs a stored run summary, including targets and
// attempts, so the report can be re-rendered from history
func (s *Store) GetRun(id string) (*domain.RunSummary, error) {
	row := s.db.QueryRow(`
		SELECT id, root, provider, model, dry_run, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	summary := &domain.RunSummary{}
	var model sql.NullString
	var prov string
	err := row.Scan(&summary.ID, &summary.Root, &prov, &model, &summary.DryRun,
		&summary.StartedAt, &summary.FinishedAt)
	if err != nil {
		return nil, err
	}
	summary.Provider = domain.ProviderName(prov)
	if model.Valid {
		summary.Model = model.String
	}

	targets, err := s.loadTargets(id)
	if err != nil {
		return nil, err
	}
	summary.Targets = targets

	return summary, nil
}

// LatestRunID returns the ID of the most recent run
func (s *Store) LatestRunID() (string, error) {
	row := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) loadTargets(runID string) ([]domain.TargetReport, error) {
	rows, err := s.db.Query(`
		SELECT id, path, language, status, final_state, detection, backups
		FROM targets WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type targetRow struct {
		id     int64
		report domain.TargetReport
	}

	var targetRows []targetRow
	for rows.Next() {
		var tr targetRow
		var lang, status, state string
		var detection sql.NullString
		if err := rows.Scan(&tr.id, &tr.report.Path, &lang, &status, &state,
			&detection, &tr.report.Backups); err != nil {
			return nil, err
		}
		tr.report.Language = domain.Language(lang)
		tr.report.Status = domain.TargetStatus(status)
		tr.report.FinalState = domain.LoopState(state)
		if detection.Valid {
			tr.report.Detection = detection.String
		}
		targetRows = append(targetRows, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var reports []domain.TargetReport
	for _, tr := range targetRows {
		attempts, err := s.loadAttempts(tr.id)
		if err != nil {
			return nil, err
		}
		tr.report.Attempts = attempts
		reports = append(reports, tr.report)
	}

	return reports, nil
}

func (s *Store) loadAttempts(targetID int64) ([]domain.Attempt, error) {
	rows, err := s.db.Query(`
		SELECT number, exit_code, timed_out, error_kind, error_text, started_at
		FROM attempts WHERE target_id = ? ORDER BY number
	`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var kind string
		var errText sql.NullString
		if err := rows.Scan(&a.Number, &a.Result.ExitCode, &a.Result.TimedOut,
			&kind, &errText, &a.StartedAt); err != nil {
			return nil, err
		}
		a.ErrorKind = domain.ErrorKind(kind)
		if errText.Valid {
			a.ErrorText = errText.String
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
