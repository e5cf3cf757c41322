package entries

import (
	"context"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
)

// Store reads and replaces the entry collection.
type Store interface {
	// Get returns all entries; an empty vault yields an empty slice.
	Get(ctx context.Context) ([]*models.Entry, error)

	// Set replaces the stored collection with list.
	Set(ctx context.Context, list []*models.Entry) error
}
