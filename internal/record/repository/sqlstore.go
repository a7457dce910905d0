package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
    store_key   TEXT PRIMARY KEY,
    store_value TEXT NOT NULL,
    updated_at  TEXT NOT NULL
)`

// SQLStore is a KV backed by one table, on SQLite (driver "sqlite") or
// PostgreSQL (driver "pgx").
type SQLStore struct {
	DB *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// OpenSQLStore opens the database and makes sure the table exists.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer; the record list is rewritten as a whole.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s store: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store: %w", err)
	}
	return NewSQLStore(db), nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.DB.GetContext(ctx, &value, s.DB.Rebind(`SELECT store_value FROM kv_store WHERE store_key = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	query := s.DB.Rebind(`
        INSERT INTO kv_store (store_key, store_value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT (store_key)
        DO UPDATE SET
            store_value = excluded.store_value,
            updated_at = excluded.updated_at
    `)
	_, err := s.DB.ExecContext(ctx, query, key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
