package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/otpkeeper/internal/dbx"
)

// Storage hands out the metadata repository the vault lives in. InTx runs
// fn so that either all of its writes land or none do.
type Storage interface {
	Metadata() metadata.Repository
	InTx(ctx context.Context, fn func(ctx context.Context, md metadata.Repository) error) error
}

type sqlStorage struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

// NewSQLStorage binds the vault to a migrated database.
func NewSQLStorage(db *sql.DB, rm repomanager.RepositoryManager) Storage {
	return &sqlStorage{db: db, rm: rm}
}

func (s *sqlStorage) Metadata() metadata.Repository {
	return s.rm.Metadata(s.db)
}

func (s *sqlStorage) InTx(ctx context.Context, fn func(ctx context.Context, md metadata.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.rm.Metadata(tx))
	})
}

type memoryStorage struct {
	repo *metadata.MemoryRepository
}

// NewMemoryStorage keeps the vault in process memory.
func NewMemoryStorage() Storage {
	return &memoryStorage{repo: metadata.NewMemoryRepository()}
}

func (s *memoryStorage) Metadata() metadata.Repository {
	return s.repo
}

// InTx stages writes in a copy and publishes them only when fn succeeds.
func (s *memoryStorage) InTx(ctx context.Context, fn func(ctx context.Context, md metadata.Repository) error) error {
	snapshot, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	staging := metadata.NewMemoryRepository()
	for k, v := range snapshot {
		_ = staging.Set(ctx, k, v)
	}

	if err := fn(ctx, staging); err != nil {
		return err
	}

	next, err := staging.List(ctx)
	if err != nil {
		return err
	}
	_ = s.repo.Clear(ctx)
	for k, v := range next {
		_ = s.repo.Set(ctx, k, v)
	}
	return nil
}
