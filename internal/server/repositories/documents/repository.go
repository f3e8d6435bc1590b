// Package documents stores the records of every user's remote
// collections as JSONB documents.
package documents

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/models"
	servermodels "github.com/dmitrijs2005/finsync/internal/server/models"
)

// Outcome is the effect of an upsert.
type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

type Repository interface {
	List(ctx context.Context, userID string, c models.Collection) ([]servermodels.Document, error)
	// Upsert stores data. Writing identical data is a no-op reported as
	// Unchanged.
	Upsert(ctx context.Context, userID string, c models.Collection, id string, data []byte) (Outcome, error)
	// Delete returns the removed data, or nil when there was no document.
	Delete(ctx context.Context, userID string, c models.Collection, id string) ([]byte, error)
	// DeleteAll empties the collection and returns what it held.
	DeleteAll(ctx context.Context, userID string, c models.Collection) ([]servermodels.Document, error)
}
