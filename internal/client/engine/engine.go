// Package engine reconciles the local record store with a remote document
// store: last-writer-wins merge, tombstone propagation, implicit deletion
// inference, batched uploads, a live change subscription and a periodic
// pull-then-push cycle.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// Ledger is the durable queue of deletions awaiting upload.
type Ledger interface {
	Queue(ctx context.Context, store models.Collection, id string) (models.PendingDeletion, bool, error)
	Remove(ctx context.Context, store models.Collection, id string) (bool, error)
	RemoveKeys(ctx context.Context, keys []string) error
	List(ctx context.Context) ([]models.PendingDeletion, error)
	Clear(ctx context.Context) error
}

// Cursor is the persisted lastSyncTime.
type Cursor interface {
	Last(ctx context.Context) (time.Time, bool, error)
	Set(ctx context.Context, t time.Time) error
	Clear(ctx context.Context) error
}

// Refresher rebuilds the in-memory application state from the store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Status is the engine-level state.
type Status string

const (
	StatusDisabled Status = "disabled"
	StatusIdle     Status = "idle"
	StatusSyncing  Status = "syncing"
)

// Config tunes timing and batching.
type Config struct {
	// BatchLimit caps the operations of one remote commit.
	BatchLimit int
	// Interval between automatic cycles. Zero disables the timer.
	Interval time.Duration
	// RefreshDebounce coalesces realtime notifications into one refresh.
	RefreshDebounce time.Duration
	// PushDelay is how long LocalChanged waits before pushing.
	PushDelay time.Duration
	// SkewTolerance widens the implicit-deletion cutoff past lastSyncTime.
	SkewTolerance time.Duration
	// FutureCursorLimit rejects a lastSyncTime further ahead of now.
	FutureCursorLimit time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchLimit:        remote.DefaultBatchLimit,
		Interval:          5 * time.Minute,
		RefreshDebounce:   250 * time.Millisecond,
		PushDelay:         time.Second,
		SkewTolerance:     time.Minute,
		FutureCursorLimit: 24 * time.Hour,
	}
}

// FlushResult describes one attempt to upload pending deletions.
type FlushResult struct {
	Attempted int
	Flushed   int
	Err       error
}

// Engine is the sync engine. Create it with New; it starts disabled.
type Engine struct {
	store    records.Repository
	ledger   Ledger
	cursor   Cursor
	state    Refresher
	notifier Notifier
	onFlush  func(FlushResult)
	log      logging.Logger
	cfg      Config
	now      func() time.Time

	// running guards cycles and force operations
	running atomic.Bool
	flushMu sync.Mutex

	mu           sync.Mutex
	remote       remote.Store
	status       Status
	lifeCtx      context.Context
	lifeCancel   context.CancelFunc
	subs         []remote.Subscription
	realtimeGen  uint64
	refreshTimer *time.Timer
	pushTimer    *time.Timer
	stopTicker   context.CancelFunc
	lastErr      error

	wg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

func WithState(r Refresher) Option { return func(e *Engine) { e.state = r } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.log = logging.OrNop(l) } }

func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithFlushObserver receives the outcome of every deletion flush,
// including the background ones started by QueueDeletion.
func WithFlushObserver(fn func(FlushResult)) Option {
	return func(e *Engine) { e.onFlush = fn }
}

func New(store records.Repository, ledger Ledger, cursor Cursor, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		ledger: ledger,
		cursor: cursor,
		log:    logging.Nop(),
		cfg:    DefaultConfig(),
		now:    time.Now,
		status: StatusDisabled,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.BatchLimit <= 0 {
		e.cfg.BatchLimit = remote.DefaultBatchLimit
	}
	e.log = e.log.With("module", "engine")
	return e
}

// Enable attaches the signed-in user's remote store: the live subscription,
// then a silent pull and the periodic timer. Subscribing first means a
// change committed while the pull runs is still delivered. The pull error
// is returned, but the engine stays enabled so later cycles retry.
func (e *Engine) Enable(ctx context.Context, rs remote.Store) error {
	e.Disable()

	e.mu.Lock()
	e.remote = rs
	e.status = StatusIdle
	e.lifeCtx, e.lifeCancel = context.WithCancel(context.WithoutCancel(ctx))
	e.mu.Unlock()
	e.log.Info(ctx, "sync enabled")

	if err := e.StartRealtime(); err != nil {
		e.log.Warn(ctx, "realtime subscription failed", "error", err)
	}
	err := e.SyncFromCloud(ctx, true)
	e.startTimer()
	return err
}

// Disable detaches the remote store and stops every background activity.
func (e *Engine) Disable() {
	e.mu.Lock()
	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	e.remote = nil
	e.status = StatusDisabled
	if e.lifeCancel != nil {
		e.lifeCancel()
	}
	if e.stopTicker != nil {
		e.stopTicker()
		e.stopTicker = nil
	}
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
	subs := e.detachRealtimeLocked()
	e.mu.Unlock()

	for _, s := range subs {
		s.Stop()
	}
	e.log.Info(context.Background(), "sync disabled")
}

// HandleAuthState is the auth provider callback: a non-nil store means a
// user signed in, nil means signed out.
func (e *Engine) HandleAuthState(ctx context.Context, rs remote.Store) error {
	if rs == nil {
		e.Disable()
		return nil
	}
	return e.Enable(ctx, rs)
}

// Close disables the engine and waits for background work to finish.
func (e *Engine) Close() {
	e.Disable()
	e.wg.Wait()
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote != nil
}

func (e *Engine) remoteStore() (remote.Store, context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote == nil {
		return nil, nil, ErrSyncDisabled
	}
	return e.remote, e.lifeCtx, nil
}

// track registers one background goroutine with the WaitGroup while sync is
// enabled. The caller must call e.wg.Done when ok is true. Disable clears
// remote under e.mu before Close waits, so no Add can race that Wait.
func (e *Engine) track() (rs remote.Store, life context.Context, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote == nil {
		return nil, nil, false
	}
	e.wg.Add(1)
	return e.remote, e.lifeCtx, true
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote != nil {
		e.status = s
	}
}

func (e *Engine) setLastErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
}

// Info is a point-in-time view of the engine for status displays.
type Info struct {
	Status    Status    `json:"status"`
	LastSync  time.Time `json:"lastSync,omitzero"`
	Pending   int       `json:"pending"`
	LastError string    `json:"lastError,omitempty"`
}

func (e *Engine) Info(ctx context.Context) (Info, error) {
	e.mu.Lock()
	info := Info{Status: e.status}
	if e.lastErr != nil {
		info.LastError = e.lastErr.Error()
	}
	e.mu.Unlock()

	last, ok, err := e.cursor.Last(ctx)
	if err != nil {
		return info, err
	}
	if ok {
		info.LastSync = last
	}
	pending, err := e.ledger.List(ctx)
	if err != nil {
		return info, err
	}
	info.Pending = len(pending)
	return info, nil
}

func (e *Engine) refresh(ctx context.Context) {
	if e.state == nil {
		return
	}
	if err := e.state.Refresh(ctx); err != nil {
		e.log.Warn(ctx, "state refresh failed", "error", err)
	}
}
