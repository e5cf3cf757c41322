// Package metadata is the opaque key/value table the vault persists into.
// Keys are short ASCII names such as "entries" or "salt"; values are raw
// bytes the caller encodes. Get reports a missing key as (nil, nil).
package metadata

import "context"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every row. Callers must not rely on map order.
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
