package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/otpkeeper/internal/filex"
)

// VaultFileName is the SQLite file created in the data directory when no
// DSN is configured.
const VaultFileName = "vault.db"

// SQLiteDSN returns the DSN of the default vault file inside dataDir,
// creating the directory if needed.
func SQLiteDSN(dataDir string) (string, error) {
	dir, err := filex.EnsureSubdDir(dataDir)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.Join(dir, VaultFileName) + "?_pragma=busy_timeout(5000)", nil
}

// OpenSQLStorage connects and migrates the vault database. The caller
// closes the returned *sql.DB.
func OpenSQLStorage(ctx context.Context, driver, dsn, dataDir string) (Storage, *sql.DB, error) {
	if dsn == "" {
		if driver != repomanager.DriverSQLite {
			return nil, nil, fmt.Errorf("a DSN is required for driver %q", driver)
		}
		var err error
		if dsn, err = SQLiteDSN(dataDir); err != nil {
			return nil, nil, err
		}
	}

	db, rm, err := repomanager.Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	return NewSQLStorage(db, rm), db, nil
}
