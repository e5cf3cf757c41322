package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/otpkeeper/internal/dbx"
)

// queries differ between drivers only by placeholder syntax.
type queries struct {
	get, upsert, del, clear, list string
}

var (
	sqliteQueries = queries{
		get: `SELECT value FROM metadata WHERE key = ?`,
		upsert: `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`,
		del:   `DELETE FROM metadata WHERE key = ?`,
		clear: `DELETE FROM metadata`,
		list:  `SELECT key, value FROM metadata ORDER BY key`,
	}

	postgresQueries = queries{
		get: `SELECT value FROM metadata WHERE key = $1`,
		upsert: `
		INSERT INTO metadata (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`,
		del:   `DELETE FROM metadata WHERE key = $1`,
		clear: `DELETE FROM metadata`,
		list:  `SELECT key, value FROM metadata ORDER BY key`,
	}
)

// sqlStore implements Repository over any DBTX, so a repository can be bound
// to the pool or to a single transaction.
type sqlStore struct {
	db dbx.DBTX
	q  queries
}

func (s sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	switch err := s.db.QueryRowContext(ctx, s.q.get, key).Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (s sqlStore) Set(ctx context.Context, key string, value []byte) error {
	return s.exec(ctx, s.q.upsert, "set metadata["+key+"]", key, value)
}

func (s sqlStore) Delete(ctx context.Context, key string) error {
	return s.exec(ctx, s.q.del, "delete metadata["+key+"]", key)
}

func (s sqlStore) Clear(ctx context.Context) error {
	return s.exec(ctx, s.q.clear, "clear metadata")
}

func (s sqlStore) exec(ctx context.Context, query, op string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func (s sqlStore) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, s.q.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return out, nil
}

// SQLiteRepository is the default single-file vault store.
type SQLiteRepository struct{ sqlStore }

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlStore{db: db, q: sqliteQueries}}
}

// PostgresRepository stores the vault in PostgreSQL through pgx's
// database/sql driver, for vaults shared between machines.
type PostgresRepository struct{ sqlStore }

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlStore{db: db, q: postgresQueries}}
}
