package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"golang.org/x/sync/errgroup"
)

// PullResult counts what one pull changed locally.
type PullResult struct {
	Merged            int
	Deleted           int
	ImplicitlyDeleted int
	Remote            int
}

func (r PullResult) Changed() bool {
	return r.Merged+r.Deleted+r.ImplicitlyDeleted > 0
}

type snapshot map[models.Collection][]models.Record

func (s snapshot) total() int {
	n := 0
	for _, recs := range s {
		n += len(recs)
	}
	return n
}

// SyncFromCloud pulls every remote collection and merges it into the local
// store. Errors are logged and reported unless silent, and returned.
func (e *Engine) SyncFromCloud(ctx context.Context, silent bool) error {
	rs, _, err := e.remoteStore()
	if err != nil {
		return err
	}
	res, err := e.pull(ctx, rs)
	e.setLastErr(err)
	if err != nil {
		e.log.Error(ctx, "pull failed", "error", err)
		e.notify(silent, LevelError, "Download from cloud failed")
		return err
	}
	e.log.Info(ctx, "pull finished",
		"merged", res.Merged, "deleted", res.Deleted, "implicit", res.ImplicitlyDeleted)
	e.notify(silent, LevelSuccess, "Data synchronised from cloud")
	return nil
}

func (e *Engine) pull(ctx context.Context, rs remote.Store) (PullResult, error) {
	// the cutoff for implicit deletions is the cursor as it was before
	// this pull
	lastSync, haveCursor, err := e.cursor.Last(ctx)
	if err != nil {
		return PullResult{}, err
	}

	snap, tombstones, err := e.fetchAll(ctx, rs, true)
	if err != nil {
		return PullResult{}, err
	}

	res := PullResult{Remote: snap.total()}
	if res.Merged, err = e.merge(ctx, snap); err != nil {
		return res, err
	}
	if res.Deleted, err = e.applyTombstones(ctx, tombstones); err != nil {
		return res, err
	}
	if haveCursor {
		if res.ImplicitlyDeleted, err = e.implicitDeletions(ctx, snap, lastSync); err != nil {
			return res, err
		}
	} else {
		e.log.Debug(ctx, "no sync cursor, implicit deletions skipped")
	}

	if res.Changed() {
		e.refresh(ctx)
	}
	if err := e.cursor.Set(ctx, e.now()); err != nil {
		return res, err
	}
	return res, nil
}

// fetchAll reads the data collections, and the tombstone log when asked,
// concurrently.
func (e *Engine) fetchAll(ctx context.Context, rs remote.Store, withTombstones bool) (snapshot, []models.Record, error) {
	results := make([][]models.Record, len(models.Collections))
	var tombstones []models.Record

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range models.Collections {
		g.Go(func() error {
			recs, err := rs.Fetch(gctx, c)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", c, err)
			}
			results[i] = recs
			return nil
		})
	}
	if withTombstones {
		g.Go(func() error {
			recs, err := rs.Fetch(gctx, models.Deletions)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", models.Deletions, err)
			}
			tombstones = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	snap := make(snapshot, len(models.Collections))
	for i, c := range models.Collections {
		snap[c] = results[i]
	}
	return snap, tombstones, nil
}

// merge applies last-writer-wins per record. A remote record whose id has
// a pending local deletion is only taken when it is newer than the
// deletion; it then cancels the pending entry.
func (e *Engine) merge(ctx context.Context, snap snapshot) (int, error) {
	pending, err := e.pendingByKey(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, c := range models.Collections {
		local, err := e.localByID(ctx, c)
		if err != nil {
			return changed, err
		}
		for _, rec := range snap[c] {
			id := rec.ID()
			if id == "" {
				continue
			}

			if p, ok := pending[models.DeletionKey(c, id)]; ok {
				if !rec.Timestamp().After(models.ParseTime(p.DeletedAt)) {
					continue
				}
				if _, err := e.ledger.Remove(ctx, c, id); err != nil {
					return changed, err
				}
			}

			cur, exists := local[id]
			if !exists {
				err := e.store.Add(ctx, c, rec)
				if errors.Is(err, records.ErrAlreadyExists) {
					// written concurrently by the realtime handler
					if cur, err = e.store.Get(ctx, c, id); err != nil {
						return changed, err
					}
					exists = cur != nil
				} else if err != nil {
					return changed, err
				} else {
					changed++
					continue
				}
			}
			if exists && rec.NewerThan(cur) {
				if err := e.store.Put(ctx, c, rec); err != nil {
					return changed, err
				}
				changed++
			}
		}
	}
	return changed, nil
}

// applyTombstones deletes every record named by the tombstone log and
// drops matching pending entries.
func (e *Engine) applyTombstones(ctx context.Context, tombstones []models.Record) (int, error) {
	changed := 0
	for _, doc := range tombstones {
		t, ok := models.TombstoneFromRecord(doc)
		if !ok {
			continue
		}
		hit, err := e.deleteLocal(ctx, t.Store, t.ID)
		if err != nil {
			return changed, err
		}
		if hit {
			changed++
		}
	}
	return changed, nil
}

// implicitDeletions removes local records missing from the remote snapshot
// that already existed at the previous sync. Records stamped after
// lastSync plus the skew tolerance are local edits waiting to be pushed.
func (e *Engine) implicitDeletions(ctx context.Context, snap snapshot, lastSync time.Time) (int, error) {
	if lastSync.After(e.now().Add(e.cfg.FutureCursorLimit)) {
		e.log.Warn(ctx, "sync cursor is in the future, implicit deletions skipped", "lastSync", lastSync)
		return 0, nil
	}
	if snap.total() == 0 {
		e.log.Warn(ctx, "remote is empty, implicit deletions skipped")
		return 0, nil
	}

	cutoff := lastSync.Add(e.cfg.SkewTolerance)
	changed := 0
	for _, c := range models.Collections {
		remoteIDs := make(map[string]struct{}, len(snap[c]))
		for _, rec := range snap[c] {
			remoteIDs[rec.ID()] = struct{}{}
		}

		local, err := e.store.GetAll(ctx, c)
		if err != nil {
			return changed, err
		}
		for _, rec := range local {
			if _, ok := remoteIDs[rec.ID()]; ok {
				continue
			}
			if rec.Timestamp().After(cutoff) {
				continue
			}
			if _, err := e.deleteLocal(ctx, c, rec.ID()); err != nil {
				return changed, err
			}
			e.log.Debug(ctx, "implicitly deleted", "collection", c, "id", rec.ID())
			changed++
		}
	}
	return changed, nil
}

// deleteLocal removes (c, id) from the store and the ledger. It reports
// whether either held it.
func (e *Engine) deleteLocal(ctx context.Context, c models.Collection, id string) (bool, error) {
	cur, err := e.store.Get(ctx, c, id)
	if err != nil {
		return false, err
	}
	if cur != nil {
		if err := e.store.Delete(ctx, c, id); err != nil {
			return false, err
		}
	}
	removed, err := e.ledger.Remove(ctx, c, id)
	if err != nil {
		return false, err
	}
	return cur != nil || removed, nil
}

func (e *Engine) localByID(ctx context.Context, c models.Collection) (map[string]models.Record, error) {
	recs, err := e.store.GetAll(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Record, len(recs))
	for _, r := range recs {
		out[r.ID()] = r
	}
	return out, nil
}

func (e *Engine) pendingByKey(ctx context.Context) (map[string]models.PendingDeletion, error) {
	entries, err := e.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PendingDeletion, len(entries))
	for _, p := range entries {
		out[p.Key] = p
	}
	return out, nil
}

// withID returns rec carrying id, copying it when the field must be set.
func withID(rec models.Record, id string) models.Record {
	if rec.ID() == id || id == "" {
		return rec
	}
	out := maps.Clone(rec)
	if out == nil {
		out = models.Record{}
	}
	out[models.FieldID] = id
	return out
}
