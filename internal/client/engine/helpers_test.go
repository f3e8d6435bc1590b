package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories"
	"github.com/dmitrijs2005/finsync/internal/client/syncstate"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/stretchr/testify/require"
)

const user = "u1"

type countingState struct {
	n atomic.Int32
}

func (s *countingState) Refresh(context.Context) error {
	s.n.Add(1)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Level
}

func (n *recordingNotifier) Notify(level Level, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, level)
}

func (n *recordingNotifier) levels() []Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Level(nil), n.msgs...)
}

type device struct {
	eng    *Engine
	repos  *repositories.Repositories
	ledger *syncstate.Ledger
	cursor *syncstate.Cursor
	state  *countingState
	notes  *recordingNotifier

	flushMu sync.Mutex
	flushes []FlushResult
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = 0
	cfg.PushDelay = 0
	cfg.RefreshDebounce = 10 * time.Millisecond
	return cfg
}

func newDevice(t *testing.T, opts ...Option) *device {
	t.Helper()
	repos, err := repositories.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)

	d := &device{
		repos:  repos,
		ledger: syncstate.NewLedger(repos.Metadata),
		cursor: syncstate.NewCursor(repos.Metadata),
		state:  &countingState{},
		notes:  &recordingNotifier{},
	}
	all := []Option{
		WithConfig(testConfig()),
		WithState(d.state),
		WithNotifier(d.notes),
		WithFlushObserver(func(r FlushResult) {
			d.flushMu.Lock()
			defer d.flushMu.Unlock()
			d.flushes = append(d.flushes, r)
		}),
	}
	d.eng = New(repos.Records, d.ledger, d.cursor, append(all, opts...)...)

	t.Cleanup(func() {
		d.eng.Close()
		_ = repos.Close()
	})
	return d
}

// enable attaches rs with realtime switched off so tests stay
// deterministic.
func (d *device) enable(t *testing.T, rs remote.Store) {
	t.Helper()
	require.NoError(t, d.eng.Enable(context.Background(), rs))
	d.eng.StopRealtime()
}

func (d *device) put(t *testing.T, c models.Collection, rec models.Record) {
	t.Helper()
	require.NoError(t, d.repos.Records.Put(context.Background(), c, rec))
}

func (d *device) get(t *testing.T, c models.Collection, id string) models.Record {
	t.Helper()
	rec, err := d.repos.Records.Get(context.Background(), c, id)
	require.NoError(t, err)
	return rec
}

func (d *device) count(t *testing.T, c models.Collection) int {
	t.Helper()
	n, err := d.repos.Records.Count(context.Background(), c)
	require.NoError(t, err)
	return n
}

func (d *device) pending(t *testing.T) []models.PendingDeletion {
	t.Helper()
	entries, err := d.ledger.List(context.Background())
	require.NoError(t, err)
	return entries
}

func (d *device) flushResults() []FlushResult {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	return append([]FlushResult(nil), d.flushes...)
}

// seedRemote writes records straight into the remote store.
func seedRemote(t *testing.T, rs remote.Store, c models.Collection, recs ...models.Record) {
	t.Helper()
	var b remote.Batch
	for _, r := range recs {
		b.Set(c, r.ID(), r)
	}
	require.NoError(t, rs.Commit(context.Background(), b.Writes()))
}

func stamp(t time.Time) string { return models.FormatTime(t) }

// blockingStore holds every Fetch once block is set until release closes.
type blockingStore struct {
	remote.Store
	block   atomic.Bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore(rs remote.Store) *blockingStore {
	return &blockingStore{Store: rs, entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingStore) Fetch(ctx context.Context, c models.Collection) ([]models.Record, error) {
	if b.block.Load() {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Store.Fetch(ctx, c)
}
