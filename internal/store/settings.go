package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sadopc/stepr/internal/prefs"
)

var _ prefs.Store = (*Store)(nil)

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// Put implements prefs.Store.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertSetting, key, value)
	if err != nil {
		return &prefs.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// PutAll implements prefs.Store in a single transaction.
func (s *Store) PutAll(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &prefs.StorageError{Op: "put", Err: err}
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx, upsertSetting, k, v); err != nil {
			return &prefs.StorageError{Op: "put", Key: k, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &prefs.StorageError{Op: "put", Err: err}
	}
	return nil
}

// Get implements prefs.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &prefs.StorageError{Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

// Contains implements prefs.Store.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, &prefs.StorageError{Op: "contains", Key: key, Err: err}
	}
	return n > 0, nil
}
