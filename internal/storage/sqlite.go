package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"sleuth/internal/types"
)

// SQLiteStorage implements Storage on a local SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path with WAL mode and
// initializes the schema.
func NewSQLite(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) CreateRun(ctx context.Context, run types.RunSummary) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := run.Status
	if status == "" {
		status = "running"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, entity, entity_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Entity, run.EntityType, status, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) AppendAuditEntries(ctx context.Context, runID string, entries []types.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_entries (run_id, node, iteration, timestamp, payload)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		payload, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, entry.Node, entry.Iteration, entry.Timestamp, string(payload)); err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, run types.RunSummary, snapshot []byte) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, iterations = ?, confidence = ?, fact_count = ?, snapshot = ?, updated_at = ?
		WHERE id = ?`,
		run.Status, run.Iterations, run.Confidence, run.FactCount, string(snapshot), time.Now().UTC(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for run %s: %w", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check snapshot update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*types.RunSummary, error) {
	var run types.RunSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity, entity_type, status, iterations, confidence, fact_count, created_at
		FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &run.Entity, &run.EntityType, &run.Status,
		&run.Iterations, &run.Confidence, &run.FactCount, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

func (s *SQLiteStorage) GetSnapshot(ctx context.Context, id string) ([]byte, error) {
	var snapshot sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM runs WHERE id = ?`, id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for run %s: %w", id, err)
	}
	if !snapshot.Valid {
		return nil, nil
	}
	return []byte(snapshot.String), nil
}

func (s *SQLiteStorage) GetAuditTrail(ctx context.Context, runID string) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node, iteration, timestamp, payload
		FROM audit_entries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var trail []types.AuditEntry
	for rows.Next() {
		var entry types.AuditEntry
		var payload string
		if err := rows.Scan(&entry.Node, &entry.Iteration, &entry.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode audit payload: %w", err)
		}
		trail = append(trail, entry)
	}
	return trail, rows.Err()
}

func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity, entity_type, status, iterations, confidence, fact_count, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunSummary
	for rows.Next() {
		var run types.RunSummary
		if err := rows.Scan(&run.ID, &run.Entity, &run.EntityType, &run.Status,
			&run.Iterations, &run.Confidence, &run.FactCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
