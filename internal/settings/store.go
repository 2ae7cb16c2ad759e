// Package settings is the per-channel key-value configuration store.
//
// Every channel owns a flat namespace of string settings (secret-key,
// verify-signature, format.* templates, projects). Values unset for a
// channel fall back to the caller-supplied default, so a channel only ever
// stores what its operators changed.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored value for (channel, key) and whether it was set.
func (s *Store) Get(ctx context.Context, channel, key string) (string, bool, error) {
	if channel == "" || key == "" {
		return "", false, fmt.Errorf("channel and key must not be empty")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM channel_settings WHERE channel = ? AND key = ?;",
		channel, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read channel setting: %w", err)
	}
	return value, true, nil
}

// String returns the stored value or fallback when unset.
func (s *Store) String(ctx context.Context, channel, key, fallback string) (string, error) {
	value, ok, err := s.Get(ctx, channel, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

// Bool returns the stored value parsed as a bool, or fallback when unset.
// An unparsable stored value also yields fallback; a broken setting must not
// take the channel offline.
func (s *Store) Bool(ctx context.Context, channel, key string, fallback bool) (bool, error) {
	value, ok, err := s.Get(ctx, channel, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}

// Set stores value for (channel, key), replacing any previous value.
func (s *Store) Set(ctx context.Context, channel, key, value string) error {
	if channel == "" || key == "" {
		return fmt.Errorf("channel and key must not be empty")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO channel_settings(channel, key, value, updated_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(channel, key) DO UPDATE SET
  value = excluded.value,
  updated_at = excluded.updated_at;
`, channel, key, value, now)
	if err != nil {
		return fmt.Errorf("upsert channel setting: %w", err)
	}
	return nil
}

// Update applies fn to the current value of (channel, key) and persists the
// result, all inside one transaction. ok reports whether a value was set.
// Returning an error from fn aborts the write and is passed through, which
// makes concurrent read-modify-write sequences (subscription add/remove)
// safe against lost updates.
func (s *Store) Update(ctx context.Context, channel, key string, fn func(cur string, ok bool) (string, error)) error {
	if channel == "" || key == "" {
		return fmt.Errorf("channel and key must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur string
	ok := true
	err = tx.QueryRowContext(ctx,
		"SELECT value FROM channel_settings WHERE channel = ? AND key = ?;",
		channel, key).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		ok = false
	} else if err != nil {
		return fmt.Errorf("read channel setting: %w", err)
	}

	next, err := fn(cur, ok)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
INSERT INTO channel_settings(channel, key, value, updated_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(channel, key) DO UPDATE SET
  value = excluded.value,
  updated_at = excluded.updated_at;
`, channel, key, next, now)
	if err != nil {
		return fmt.Errorf("upsert channel setting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
