package engine

import "errors"

var (
	// ErrSyncDisabled is returned when no remote store is attached.
	ErrSyncDisabled = errors.New("sync is disabled")
	// ErrSyncInProgress is returned when another cycle or force operation
	// holds the engine.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrRemoteEmpty is returned by ForceReplaceFromCloud when the remote
	// holds nothing while local data exists.
	ErrRemoteEmpty = errors.New("remote is empty, local data kept")
)
