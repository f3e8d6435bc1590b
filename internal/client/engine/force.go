package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// ForceOptions control the bulk replace operations.
type ForceOptions struct {
	Silent bool
	// SkipEmptyCheck allows replacing local data with an empty remote.
	SkipEmptyCheck bool
}

func (e *Engine) acquire(silent bool) (remote.Store, func(), error) {
	rs, _, err := e.remoteStore()
	if err != nil {
		e.notify(silent, LevelError, "Sign in required")
		return nil, nil, err
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, nil, ErrSyncInProgress
	}
	e.setStatus(StatusSyncing)
	return rs, func() {
		e.setStatus(StatusIdle)
		e.running.Store(false)
	}, nil
}

// ForceReplaceFromCloud discards local data and the ledger and loads the
// remote snapshot. It refuses with ErrRemoteEmpty when the remote is empty
// but local data exists, unless SkipEmptyCheck is set.
func (e *Engine) ForceReplaceFromCloud(ctx context.Context, opts ForceOptions) error {
	rs, release, err := e.acquire(opts.Silent)
	if err != nil {
		return err
	}
	defer release()

	e.notify(opts.Silent, LevelInfo, "Replacing local data from the cloud")
	err = e.replaceFromCloud(ctx, rs, opts.SkipEmptyCheck)
	e.setLastErr(err)
	switch {
	case errors.Is(err, ErrRemoteEmpty):
		e.log.Warn(ctx, "remote is empty, local data kept")
		e.notify(opts.Silent, LevelInfo, "No data found in the cloud. Local data kept.")
	case err != nil:
		e.log.Error(ctx, "force replace from cloud failed", "error", err)
		e.notify(opts.Silent, LevelError, "Synchronisation failed: "+err.Error())
	default:
		e.notify(opts.Silent, LevelSuccess, "Local data replaced from the cloud")
	}
	return err
}

func (e *Engine) replaceFromCloud(ctx context.Context, rs remote.Store, skipEmptyCheck bool) error {
	snap, _, err := e.fetchAll(ctx, rs, false)
	if err != nil {
		return err
	}

	if !skipEmptyCheck && snap.total() == 0 {
		local, err := e.localCount(ctx)
		if err != nil {
			return err
		}
		if local > 0 {
			return ErrRemoteEmpty
		}
	}

	for _, c := range models.Collections {
		if err := e.store.Clear(ctx, c); err != nil {
			return err
		}
	}
	if err := e.ledger.Clear(ctx); err != nil {
		return err
	}
	if err := e.cursor.Clear(ctx); err != nil {
		return err
	}

	var errs []error
	for _, c := range models.Collections {
		for _, rec := range snap[c] {
			if rec.ID() == "" {
				continue
			}
			if err := e.store.Put(ctx, c, rec); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := e.cursor.Set(ctx, e.now()); err != nil {
		errs = append(errs, err)
	}
	e.refresh(ctx)
	return errors.Join(errs...)
}

// ForceUploadToCloud replaces the remote with the local data. Realtime is
// suspended meanwhile so the transiently empty remote is not mirrored
// locally; it is restarted whatever the outcome.
func (e *Engine) ForceUploadToCloud(ctx context.Context, opts ForceOptions) error {
	rs, release, err := e.acquire(opts.Silent)
	if err != nil {
		return err
	}
	defer release()

	e.notify(opts.Silent, LevelInfo, "Uploading local data to the cloud")
	e.StopRealtime()
	defer func() {
		if !e.Enabled() {
			return
		}
		if err := e.StartRealtime(); err != nil {
			e.log.Warn(ctx, "realtime restart failed", "error", err)
		}
	}()

	err = e.uploadToCloud(ctx, rs)
	e.setLastErr(err)
	if err != nil {
		e.log.Error(ctx, "force upload to cloud failed", "error", err)
		e.notify(opts.Silent, LevelError, "Upload failed: "+err.Error())
		return err
	}
	e.notify(opts.Silent, LevelSuccess, "All data uploaded to the cloud")
	return nil
}

func (e *Engine) uploadToCloud(ctx context.Context, rs remote.Store) error {
	// snapshot before the remote is touched
	ops, err := e.localUpserts(ctx)
	if err != nil {
		return err
	}
	if err := e.clearRemote(ctx, rs); err != nil {
		return err
	}
	if _, err := remote.CommitInBatches(ctx, rs, ops, e.cfg.BatchLimit); err != nil {
		return err
	}
	if err := e.cursor.Set(ctx, e.now()); err != nil {
		return err
	}
	return e.ledger.Clear(ctx)
}

// ClearCloudData removes every remote document, tombstones included, and
// empties the ledger.
func (e *Engine) ClearCloudData(ctx context.Context) error {
	rs, release, err := e.acquire(true)
	if err != nil {
		return err
	}
	defer release()
	return e.clearRemote(ctx, rs)
}

func (e *Engine) clearRemote(ctx context.Context, rs remote.Store) error {
	for _, c := range append(slices.Clone(models.Collections), models.Deletions) {
		if err := rs.Clear(ctx, c); err != nil {
			return fmt.Errorf("clear remote %s: %w", c, err)
		}
	}
	return e.ledger.Clear(ctx)
}

func (e *Engine) localCount(ctx context.Context) (int, error) {
	total := 0
	for _, c := range models.Collections {
		n, err := e.store.Count(ctx, c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
