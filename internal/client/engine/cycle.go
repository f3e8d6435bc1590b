package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SyncNow runs a user-triggered cycle. It returns ErrSyncInProgress
// without doing anything when a cycle is already running.
func (e *Engine) SyncNow(ctx context.Context) error {
	return e.RunCycle(ctx, false)
}

// RunCycle pulls and then pushes. Overlapping calls are dropped.
func (e *Engine) RunCycle(ctx context.Context, silent bool) error {
	rs, _, err := e.remoteStore()
	if err != nil {
		return err
	}
	if !e.running.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "cycle skipped, another one is running")
		return ErrSyncInProgress
	}
	defer e.running.Store(false)

	e.setStatus(StatusSyncing)
	defer e.setStatus(StatusIdle)

	started := time.Now()
	pulled, err := e.pull(ctx, rs)
	if err != nil {
		err = fmt.Errorf("pull: %w", err)
	} else {
		var pushed int
		pushed, err = e.push(ctx, rs)
		if err != nil {
			err = fmt.Errorf("push: %w", err)
		} else {
			e.log.Info(ctx, "cycle finished",
				"merged", pulled.Merged,
				"deleted", pulled.Deleted+pulled.ImplicitlyDeleted,
				"pushed", pushed,
				"took", time.Since(started),
			)
		}
	}

	e.setLastErr(err)
	if err != nil {
		e.log.Error(ctx, "cycle failed", "error", err)
		e.notify(silent, LevelError, "Synchronisation failed")
		return err
	}
	e.notify(silent, LevelSuccess, "Synchronisation completed")
	return nil
}

// Running reports whether a cycle or force operation is in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) startTimer() {
	if e.cfg.Interval <= 0 {
		return
	}

	e.mu.Lock()
	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(e.lifeCtx)
	e.stopTicker = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.RunCycle(ctx, true); err != nil && !errors.Is(err, ErrSyncInProgress) {
					e.log.Debug(ctx, "periodic cycle failed", "error", err)
				}
			}
		}
	}()
}
