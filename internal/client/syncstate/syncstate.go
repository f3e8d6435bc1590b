// Package syncstate keeps the durable sync bookkeeping that lives outside
// the record store: the pending-deletion ledger, the sync cursor and the
// active profile preference. Everything is stored in the metadata table so
// it survives clearing the record collections.
package syncstate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finsync/internal/models"
)

// Metadata keys.
const (
	KeyLastSyncTime    = "lastSyncTime"
	KeyPendingDeletes  = "pendingDeletes"
	KeyActiveProfileID = "activeProfileId"
)

// Ledger is the durable queue of local deletions that still have to reach
// the remote tombstone log. Entries are unique per key. Every change is a
// single metadata transaction, so concurrent writers never lose entries.
type Ledger struct {
	repo metadata.Repository
	now  func() time.Time
}

func NewLedger(repo metadata.Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// WithClock replaces the clock used to stamp deletedAt.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) update(ctx context.Context, fn func(entries *[]models.PendingDeletion) (bool, error)) error {
	if err := metadata.UpdateJSON(ctx, l.repo, KeyPendingDeletes, fn); err != nil {
		return fmt.Errorf("update pending deletions: %w", err)
	}
	return nil
}

// Queue records the deletion of (store, id). It returns the stored entry and
// whether it was newly added; a second Queue for the same key keeps the
// original entry.
func (l *Ledger) Queue(ctx context.Context, store models.Collection, id string) (models.PendingDeletion, bool, error) {
	key := models.DeletionKey(store, id)
	var (
		entry models.PendingDeletion
		added bool
	)
	err := l.update(ctx, func(entries *[]models.PendingDeletion) (bool, error) {
		if i := slices.IndexFunc(*entries, func(e models.PendingDeletion) bool { return e.Key == key }); i >= 0 {
			entry = (*entries)[i]
			return false, nil
		}
		entry = models.PendingDeletion{
			Key:       key,
			Store:     store,
			ID:        id,
			DeletedAt: models.FormatTime(l.now()),
		}
		*entries = append(*entries, entry)
		added = true
		return true, nil
	})
	if err != nil {
		return models.PendingDeletion{}, false, err
	}
	return entry, added, nil
}

// Remove drops the entry for (store, id) and reports whether one existed.
func (l *Ledger) Remove(ctx context.Context, store models.Collection, id string) (bool, error) {
	n, err := l.removeKeys(ctx, []string{models.DeletionKey(store, id)})
	return n > 0, err
}

// RemoveKeys drops every entry whose key is listed. Entries queued after the
// caller read the ledger are kept.
func (l *Ledger) RemoveKeys(ctx context.Context, keys []string) error {
	_, err := l.removeKeys(ctx, keys)
	return err
}

func (l *Ledger) removeKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	removed := 0
	err := l.update(ctx, func(entries *[]models.PendingDeletion) (bool, error) {
		before := len(*entries)
		kept := slices.DeleteFunc(*entries, func(e models.PendingDeletion) bool {
			return slices.Contains(keys, e.Key)
		})
		removed = before - len(kept)
		if kept == nil {
			kept = []models.PendingDeletion{}
		}
		*entries = kept
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// List returns the queued entries in insertion order.
func (l *Ledger) List(ctx context.Context) ([]models.PendingDeletion, error) {
	var entries []models.PendingDeletion
	if _, err := metadata.GetJSON(ctx, l.repo, KeyPendingDeletes, &entries); err != nil {
		return nil, fmt.Errorf("load pending deletions: %w", err)
	}
	return entries, nil
}

func (l *Ledger) Len(ctx context.Context) (int, error) {
	entries, err := l.List(ctx)
	return len(entries), err
}

func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.repo.Delete(ctx, KeyPendingDeletes); err != nil {
		return fmt.Errorf("clear pending deletions: %w", err)
	}
	return nil
}
