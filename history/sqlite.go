package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scans (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	url        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	overall    INTEGER NOT NULL,
	payload    TEXT NOT NULL
);`

// SQLiteStore keeps the history in an SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
}

// OpenSQLiteStore opens (or creates) the database at path. Use ":memory:" for a throwaway store.
func OpenSQLiteStore(path string, capacity int) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// single connection: serialises writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise history database: %w", err)
		}
	}
	return &SQLiteStore{db: db, capacity: normalizeCapacity(capacity)}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec ScanRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (id, url, created_at, overall, payload) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.CreatedAt.UnixNano(), rec.Score.Overall, string(payload),
	); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scans WHERE seq NOT IN (SELECT seq FROM scans ORDER BY seq DESC LIMIT ?)`,
		s.capacity,
	); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM scans ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := []ScanRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec ScanRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (ScanRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM scans WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ScanRecord{}, ErrNotFound
	}
	if err != nil {
		return ScanRecord{}, err
	}
	var rec ScanRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ScanRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
