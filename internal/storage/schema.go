package storage

const schema = `
-- Investigation runs
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    entity TEXT NOT NULL,
    entity_type TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'running',
    iterations INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0,
    fact_count INTEGER NOT NULL DEFAULT 0,
    snapshot TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_entity ON runs(entity);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

-- Audit trail, streamed during the run
CREATE TABLE IF NOT EXISTS audit_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    node TEXT NOT NULL,
    iteration INTEGER NOT NULL,
    timestamp DATETIME NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_entries(run_id);
`
