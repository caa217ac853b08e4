package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/buddytalk/internal/failcache"
)

// Load returns the record stored under key, or failcache.ErrNotFound.
func (db *DB) Load(key string) ([]byte, error) {
	var value []byte
	err := db.QueryRow(`SELECT value FROM local_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failcache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return value, nil
}

// Save stores value under key, replacing any previous record.
func (db *DB) Save(key string, value []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO local_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Keys lists stored record keys with their last update time.
func (db *DB) Keys() ([]LocalRecord, error) {
	rows, err := db.Query(`SELECT key, length(value), updated_at FROM local_state ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []LocalRecord
	for rows.Next() {
		var r LocalRecord
		var updated int64
		if err := rows.Scan(&r.Key, &r.Size, &updated); err != nil {
			return nil, err
		}
		r.UpdatedAt = time.UnixMilli(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LocalRecord describes one stored record.
type LocalRecord struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

var _ failcache.Storage = (*DB)(nil)
