package history

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    root TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT,
    dry_run BOOLEAN DEFAULT FALSE,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    passed INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS targets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    path TEXT NOT NULL,
    language TEXT,
    status TEXT NOT NULL,
    final_state TEXT,
    detection TEXT,
    backups INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_targets_run_id ON targets(run_id);

CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    target_id INTEGER NOT NULL REFERENCES targets(id),
    number INTEGER NOT NULL,
    exit_code INTEGER,
    timed_out BOOLEAN DEFAULT FALSE,
    error_kind TEXT,
    error_text TEXT,
    patched BOOLEAN DEFAULT FALSE,
    started_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_attempts_target_id ON attempts(target_id);
`
