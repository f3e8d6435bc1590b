// Package remote defines the per-user remote document store the sync engine
// mirrors local collections into, plus helpers shared by its
// implementations.
package remote

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/finsync/internal/models"
)

var (
	// ErrBatchTooLarge is returned when a commit exceeds the store's
	// per-transaction operation ceiling.
	ErrBatchTooLarge = errors.New("batch exceeds operation limit")
	// ErrUnknownCollection is returned for collections outside the schema.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrSubscriptionLagging is reported to a watcher that fell too far
	// behind and was dropped.
	ErrSubscriptionLagging = errors.New("subscription lagging")
)

// Store is one user's namespace in the remote document store: the seven
// data collections plus the deletions tombstone log.
type Store interface {
	// Fetch returns every document of collection c.
	Fetch(ctx context.Context, c models.Collection) ([]models.Record, error)
	// Commit applies writes atomically: all or none.
	Commit(ctx context.Context, writes []Write) error
	// Clear removes every document of collection c.
	Clear(ctx context.Context, c models.Collection) error
	// Subscribe delivers change batches for c until the subscription is
	// stopped or ctx ends. Transport failures go to onError once; the
	// subscription is not re-established.
	Subscribe(ctx context.Context, c models.Collection, onChange ChangeHandler, onError ErrorHandler) (Subscription, error)
}

// Subscription is a live change feed.
type Subscription interface {
	Stop()
}

type ChangeHandler func(changes []Change)

type ErrorHandler func(err error)

// ChangeKind classifies a document change notification.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

type Change struct {
	Kind ChangeKind    `json:"kind"`
	ID   string        `json:"id"`
	Data models.Record `json:"data,omitempty"`
}

// WriteKind is the operation of a single Write.
type WriteKind string

const (
	Set    WriteKind = "set"
	Delete WriteKind = "delete"
)

// Write is one document operation inside a commit.
type Write struct {
	Kind       WriteKind         `json:"kind"`
	Collection models.Collection `json:"collection"`
	ID         string            `json:"id"`
	Data       models.Record     `json:"data,omitempty"`
}

// Validate checks the write against the schema.
func (w Write) Validate() error {
	if !w.Collection.Remote() {
		return ErrUnknownCollection
	}
	if w.ID == "" {
		return errors.New("write without document id")
	}
	if w.Kind != Set && w.Kind != Delete {
		return errors.New("unknown write kind")
	}
	return nil
}
