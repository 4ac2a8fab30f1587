// Package localstore is the durable key/value mirror of the in-memory
// state: the full transaction list JSON-encoded under one key and the
// selected theme under another, the way the browser build kept them in
// localStorage.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

const (
	keyTransactions = "transactions"
	keyTheme        = "theme"
)

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveTransactions overwrites the persisted transaction list.
func (s *Store) SaveTransactions(ctx context.Context, records []core.Transaction) error {
	if records == nil {
		records = []core.Transaction{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	return s.set(ctx, keyTransactions, string(data))
}

// LoadTransactions returns the last persisted list, or nil when
// nothing has been saved yet.
func (s *Store) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	raw, ok, err := s.get(ctx, keyTransactions)
	if err != nil || !ok {
		return nil, err
	}
	var records []core.Transaction
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return records, nil
}

func (s *Store) SaveTheme(ctx context.Context, theme string) error {
	return s.set(ctx, keyTheme, theme)
}

// LoadTheme returns the saved theme name, or "" when none is saved.
func (s *Store) LoadTheme(ctx context.Context) (string, error) {
	raw, _, err := s.get(ctx, keyTheme)
	return raw, err
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}
