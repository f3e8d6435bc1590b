package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// SyncToCloud flushes pending deletions and then upserts every local
// record. A failed flush aborts the push so stale records cannot overwrite
// a deletion that has not reached the remote yet.
func (e *Engine) SyncToCloud(ctx context.Context, silent bool) error {
	rs, _, err := e.remoteStore()
	if err != nil {
		return err
	}
	n, err := e.push(ctx, rs)
	e.setLastErr(err)
	if err != nil {
		e.log.Error(ctx, "push failed", "error", err)
		e.notify(silent, LevelError, "Synchronisation failed")
		return err
	}
	e.log.Info(ctx, "push finished", "records", n)
	e.notify(silent, LevelSuccess, "Synchronisation completed")
	return nil
}

func (e *Engine) push(ctx context.Context, rs remote.Store) (int, error) {
	if _, err := e.flush(ctx, rs); err != nil {
		return 0, fmt.Errorf("flush pending deletions: %w", err)
	}

	ops, err := e.localUpserts(ctx)
	if err != nil {
		return 0, err
	}
	n, err := remote.CommitInBatches(ctx, rs, ops, e.cfg.BatchLimit)
	if err != nil {
		return n, err
	}
	if err := e.cursor.Set(ctx, e.now()); err != nil {
		return n, err
	}
	return n, nil
}

func (e *Engine) localUpserts(ctx context.Context) ([]remote.Op, error) {
	var ops []remote.Op
	for _, c := range models.Collections {
		recs, err := e.store.GetAll(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.ID() == "" {
				continue
			}
			ops = append(ops, remote.SetOp(c, rec))
		}
	}
	return ops, nil
}

// QueueDeletion records a local deletion. When sync is enabled a flush is
// started in the background; its outcome goes to the flush observer.
func (e *Engine) QueueDeletion(ctx context.Context, store models.Collection, id string) error {
	if !store.Valid() || id == "" {
		return fmt.Errorf("queue deletion: invalid target %s/%q", store, id)
	}
	if _, _, err := e.ledger.Queue(ctx, store, id); err != nil {
		return err
	}

	rs, life, ok := e.track()
	if !ok {
		return nil
	}
	go func() {
		defer e.wg.Done()
		if _, err := e.flush(life, rs); err != nil {
			e.log.Warn(life, "background deletion flush failed", "error", err)
		}
	}()
	return nil
}

// ClearPendingDeletion drops the ledger entry for (store, id). It reports
// false when there was none, which also means a tombstone may already be
// on the remote.
func (e *Engine) ClearPendingDeletion(ctx context.Context, store models.Collection, id string) (bool, error) {
	return e.ledger.Remove(ctx, store, id)
}

// PendingDeletions lists the ledger.
func (e *Engine) PendingDeletions(ctx context.Context) ([]models.PendingDeletion, error) {
	return e.ledger.List(ctx)
}

// FlushPendingDeletes uploads the ledger now.
func (e *Engine) FlushPendingDeletes(ctx context.Context) (FlushResult, error) {
	rs, _, err := e.remoteStore()
	if err != nil {
		return FlushResult{}, err
	}
	return e.flush(ctx, rs)
}

// flush writes a tombstone and deletes the remote record for every ledger
// entry. Each entry costs two writes, so chunks hold half the batch limit.
// The flushed keys leave the ledger only when every chunk committed.
func (e *Engine) flush(ctx context.Context, rs remote.Store) (FlushResult, error) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	entries, err := e.ledger.List(ctx)
	if err != nil {
		return FlushResult{}, err
	}
	if len(entries) == 0 {
		return FlushResult{}, nil
	}

	keys := make([]string, 0, len(entries))
	ops := make([]remote.Op, 0, len(entries))
	for _, p := range entries {
		keys = append(keys, p.Key)
		if !p.Store.Valid() || p.ID == "" {
			continue
		}
		t := p.Tombstone()
		if t.DeletedAt == "" {
			t.DeletedAt = models.FormatTime(e.now())
		}
		ops = append(ops, func(b *remote.Batch) {
			b.Set(models.Deletions, t.Key(), t.Record())
			b.Delete(t.Store, t.ID)
		})
	}

	res := FlushResult{Attempted: len(ops)}
	n, err := remote.CommitInBatches(ctx, rs, ops, max(1, e.cfg.BatchLimit/2))
	if err == nil {
		err = e.ledger.RemoveKeys(ctx, keys)
	}
	if err == nil {
		res.Flushed = n
	}
	res.Err = err
	if e.onFlush != nil {
		e.onFlush(res)
	}
	return res, err
}

// LocalChanged schedules a push shortly after a local write. Calls made
// while one is scheduled are merged into it.
func (e *Engine) LocalChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote == nil || e.pushTimer != nil || e.cfg.PushDelay <= 0 {
		return
	}
	life := e.lifeCtx
	var t *time.Timer
	t = time.AfterFunc(e.cfg.PushDelay, func() {
		e.mu.Lock()
		if e.pushTimer == t {
			e.pushTimer = nil
		}
		e.mu.Unlock()
		if life.Err() != nil {
			return
		}
		if !e.running.CompareAndSwap(false, true) {
			return
		}
		defer e.running.Store(false)
		_ = e.SyncToCloud(life, true)
	})
	e.pushTimer = t
}
