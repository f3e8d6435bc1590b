package records

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/models"
)

// Repository is the local embedded store: named collections of documents
// keyed by id. Every call is atomic on its own.
type Repository interface {
	// Add inserts rec and fails with ErrAlreadyExists if its id is taken.
	Add(ctx context.Context, c models.Collection, rec models.Record) error
	// Put upserts rec unconditionally.
	Put(ctx context.Context, c models.Collection, rec models.Record) error
	// Get returns the document or (nil, nil) when it does not exist.
	Get(ctx context.Context, c models.Collection, id string) (models.Record, error)
	GetAll(ctx context.Context, c models.Collection) ([]models.Record, error)
	// GetAllByIndex returns documents whose indexed field equals value.
	GetAllByIndex(ctx context.Context, c models.Collection, field, value string) ([]models.Record, error)
	// Delete removes a document; deleting a missing id is not an error.
	Delete(ctx context.Context, c models.Collection, id string) error
	Clear(ctx context.Context, c models.Collection) error
	Count(ctx context.Context, c models.Collection) (int, error)
}
