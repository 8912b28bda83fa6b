package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Load returns the value stored under key. ok is false when the key has
// never been saved.
func (db *DB) Load(ctx context.Context, key string) (string, bool, error) {
	query, args, err := db.sq.Select("value").
		From("settings").
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("failed to build query: %w", err)
	}

	var value string
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, true, nil
}

// Save overwrites the value stored under key.
func (db *DB) Save(ctx context.Context, key, value string) error {
	query, args, err := db.sq.Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// ListSettings returns every stored key with its last update time.
func (db *DB) ListSettings(ctx context.Context) ([]*Setting, error) {
	query, args, err := db.sq.Select("key", "value", "updated_at").
		From("settings").
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}
