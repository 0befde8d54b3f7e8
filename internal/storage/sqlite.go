package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		email TEXT NOT NULL,
		response TEXT NOT NULL,
		risk TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		label TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRecord inserts rec, assigning an ID and timestamp when they are unset.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, rec *models.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, session_id, created_at, email, response, risk, score, label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.CreatedAt, rec.Email, rec.Response, rec.Risk, rec.Score, string(rec.Label),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

const recordColumns = `id, session_id, created_at, email, response, risk, score, label`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.HistoryRecord, error) {
	var rec models.HistoryRecord
	var label string
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.CreatedAt, &rec.Email, &rec.Response, &rec.Risk, &rec.Score, &label); err != nil {
		return nil, err
	}
	rec.Label = vector.Label(label)
	return &rec, nil
}

// GetRecord returns a record by ID.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*models.HistoryRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM history WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns records oldest first with offset and limit. A limit <= 0 returns all.
func (s *SQLiteStorage) ListRecords(ctx context.Context, sessionID string, offset, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM history
		 WHERE (? = '' OR session_id = ?)
		 ORDER BY created_at, rowid LIMIT ? OFFSET ?`,
		sessionID, sessionID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.HistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountRecords returns the number of records.
func (s *SQLiteStorage) CountRecords(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE (? = '' OR session_id = ?)`, sessionID, sessionID,
	).Scan(&count)
	return count, err
}

// ClearRecords deletes records and returns how many were removed.
func (s *SQLiteStorage) ClearRecords(ctx context.Context, sessionID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE (? = '' OR session_id = ?)`, sessionID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
