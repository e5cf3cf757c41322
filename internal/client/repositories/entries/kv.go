package entries

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/metadata"
)

// Key is the metadata key holding the serialized entries.
const Key = "entries"

type KVStore struct {
	kv metadata.Repository
}

func NewKVStore(kv metadata.Repository) *KVStore {
	return &KVStore{kv: kv}
}

// NewMemoryStore returns a KVStore over process memory.
func NewMemoryStore() *KVStore {
	return NewKVStore(metadata.NewMemoryRepository())
}

func (s *KVStore) Get(ctx context.Context) ([]*models.Entry, error) {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []*models.Entry{}, nil
	}

	var list []*models.Entry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	if list == nil {
		list = []*models.Entry{}
	}
	return list, nil
}

func (s *KVStore) Set(ctx context.Context, list []*models.Entry) error {
	if list == nil {
		list = []*models.Entry{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}
	return s.kv.Set(ctx, Key, raw)
}
