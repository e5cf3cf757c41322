// Package repomanager picks the storage dialect for a vault database,
// runs its embedded goose migrations and vends repositories bound to a
// *sql.DB or *sql.Tx.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/otpkeeper/internal/dbx"
	"github.com/pressly/goose/v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Metadata(db dbx.DBTX) metadata.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// New returns the manager for a database/sql driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverSQLite:
		return &SQLiteRepositoryManager{}, nil
	case DriverPostgres:
		return &PostgresRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	m, err := New(driver)
	if err != nil {
		return nil, nil, err
	}

	maxOpen := 0
	if driver == DriverSQLite {
		maxOpen = 1
	}
	db, err := dbx.Open(ctx, driver, dsn, maxOpen)
	if err != nil {
		return nil, nil, err
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", driver, err)
	}

	return db, m, nil
}
