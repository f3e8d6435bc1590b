package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// StartRealtime subscribes to every data collection and the tombstone log.
// Notifications are applied to the local store as they arrive; the state
// refresh is debounced. A broken subscription is logged and left down
// until the next Enable.
func (e *Engine) StartRealtime() error {
	e.StopRealtime()

	e.mu.Lock()
	rs, life := e.remote, e.lifeCtx
	if rs == nil {
		e.mu.Unlock()
		return ErrSyncDisabled
	}
	e.realtimeGen++
	gen := e.realtimeGen
	e.mu.Unlock()

	targets := append(slices.Clone(models.Collections), models.Deletions)
	subs := make([]remote.Subscription, 0, len(targets))
	for _, c := range targets {
		sub, err := rs.Subscribe(life, c, e.changeHandler(life, gen, c), e.errorHandler(life, c))
		if err != nil {
			stopAll(subs)
			return fmt.Errorf("subscribe %s: %w", c, err)
		}
		subs = append(subs, sub)
	}

	e.mu.Lock()
	if e.realtimeGen != gen || e.remote == nil {
		e.mu.Unlock()
		stopAll(subs)
		return nil
	}
	e.subs = subs
	e.mu.Unlock()
	e.log.Debug(life, "realtime started", "subscriptions", len(subs))
	return nil
}

// StopRealtime drops every subscription and any scheduled refresh.
func (e *Engine) StopRealtime() {
	e.mu.Lock()
	subs := e.detachRealtimeLocked()
	e.mu.Unlock()
	stopAll(subs)
}

func (e *Engine) detachRealtimeLocked() []remote.Subscription {
	e.realtimeGen++
	subs := e.subs
	e.subs = nil
	if e.refreshTimer != nil {
		e.refreshTimer.Stop()
		e.refreshTimer = nil
	}
	return subs
}

func stopAll(subs []remote.Subscription) {
	for _, s := range subs {
		s.Stop()
	}
}

// RealtimeActive reports whether subscriptions are open.
func (e *Engine) RealtimeActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs) > 0
}

func (e *Engine) live(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realtimeGen == gen && e.remote != nil
}

func (e *Engine) changeHandler(ctx context.Context, gen uint64, c models.Collection) remote.ChangeHandler {
	return func(changes []remote.Change) {
		if !e.live(gen) {
			return
		}
		var (
			changed bool
			err     error
		)
		if c == models.Deletions {
			changed, err = e.applyRemoteTombstones(ctx, changes)
		} else {
			changed, err = e.applyRemoteChanges(ctx, c, changes)
		}
		if err != nil {
			e.log.Warn(ctx, "realtime apply failed", "collection", c, "error", err)
		}
		if changed {
			e.scheduleRefresh()
		}
	}
}

func (e *Engine) errorHandler(ctx context.Context, c models.Collection) remote.ErrorHandler {
	return func(err error) {
		e.log.Warn(ctx, "realtime subscription failed", "collection", c, "error", err)
	}
}

// applyRemoteChanges writes one notification batch. A strictly newer local
// copy is kept, as is a pending local deletion newer than the change.
func (e *Engine) applyRemoteChanges(ctx context.Context, c models.Collection, changes []remote.Change) (bool, error) {
	pending, err := e.pendingByKey(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	for _, ch := range changes {
		id := ch.ID
		if id == "" {
			id = ch.Data.ID()
		}
		if id == "" {
			continue
		}

		if ch.Kind == remote.Removed {
			if err := e.store.Delete(ctx, c, id); err != nil {
				return changed, err
			}
			changed = true
			continue
		}

		rec := withID(ch.Data, id)
		if p, ok := pending[models.DeletionKey(c, id)]; ok {
			if !rec.Timestamp().After(models.ParseTime(p.DeletedAt)) {
				continue
			}
			if _, err := e.ledger.Remove(ctx, c, id); err != nil {
				return changed, err
			}
		}
		cur, err := e.store.Get(ctx, c, id)
		if err != nil {
			return changed, err
		}
		if cur != nil && cur.NewerThan(rec) {
			continue
		}
		if err := e.store.Put(ctx, c, rec); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

func (e *Engine) applyRemoteTombstones(ctx context.Context, changes []remote.Change) (bool, error) {
	changed := false
	for _, ch := range changes {
		if ch.Kind == remote.Removed {
			continue
		}
		t, ok := models.TombstoneFromRecord(ch.Data)
		if !ok {
			continue
		}
		hit, err := e.deleteLocal(ctx, t.Store, t.ID)
		if err != nil {
			return changed, err
		}
		changed = changed || hit
	}
	return changed, nil
}

func (e *Engine) scheduleRefresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refreshTimer != nil || e.remote == nil {
		return
	}
	life := e.lifeCtx
	var t *time.Timer
	t = time.AfterFunc(e.cfg.RefreshDebounce, func() {
		e.mu.Lock()
		if e.refreshTimer == t {
			e.refreshTimer = nil
		}
		e.mu.Unlock()
		if life.Err() != nil {
			return
		}
		e.refresh(life)
	})
	e.refreshTimer = t
}
