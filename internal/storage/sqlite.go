//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS probes (
			name TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			probe_type TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`)
	return err
}

func (s *SQLiteStore) SaveProbe(ctx context.Context, record ProbeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeProbeRecord(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO probes (name, id, probe_type, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			probe_type = excluded.probe_type,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.Name, record.ID, record.ProbeType, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetProbe(ctx context.Context, name string) (ProbeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return ProbeRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM probes WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProbeRecord{}, false, nil
		}
		return ProbeRecord{}, false, err
	}

	record, err := DecodeProbeRecord(payload)
	if err != nil {
		return ProbeRecord{}, false, fmt.Errorf("decode probe %s: %w", name, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListProbes(ctx context.Context) ([]ProbeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM probes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ProbeRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeProbeRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("decode probe record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteProbe(ctx context.Context, name string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM probes WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store not initialized")
	}
	return s.db, nil
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
