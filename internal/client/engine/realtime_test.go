package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/remote/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealtime_PropagatesBetweenDevices(t *testing.T) {
	ctx := context.Background()
	srv := memory.NewServer()
	rs := srv.Store(user)
	a, b := newDevice(t), newDevice(t)
	require.NoError(t, a.eng.Enable(ctx, rs))
	require.NoError(t, b.eng.Enable(ctx, rs))
	base := b.state.n.Load()

	a.put(t, models.Notes, models.Record{"id": "n1", "title": "hello", "createdAt": stamp(time.Now())})
	require.NoError(t, a.eng.SyncToCloud(ctx, true))

	require.Eventually(t, func() bool { return b.get(t, models.Notes, "n1") != nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return b.state.n.Load() > base }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.repos.Records.Delete(ctx, models.Notes, "n1"))
	require.NoError(t, a.eng.QueueDeletion(ctx, models.Notes, "n1"))

	require.Eventually(t, func() bool { return b.get(t, models.Notes, "n1") == nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(a.pending(t)) == 0 }, time.Second, 5*time.Millisecond)
}

// racingStore commits rec once, right after the first Fetch of its
// collection has read the remote, so the pull cannot see it.
type racingStore struct {
	remote.Store
	c    models.Collection
	rec  models.Record
	once sync.Once
	err  error
}

func (r *racingStore) Fetch(ctx context.Context, c models.Collection) ([]models.Record, error) {
	docs, err := r.Store.Fetch(ctx, c)
	if c == r.c {
		r.once.Do(func() {
			var b remote.Batch
			b.Set(c, r.rec.ID(), r.rec)
			r.err = r.Store.Commit(ctx, b.Writes())
		})
	}
	return docs, err
}

func TestEnable_DeliversChangesCommittedDuringInitialPull(t *testing.T) {
	ctx := context.Background()
	srv := memory.NewServer()
	rs := &racingStore{
		Store: srv.Store(user),
		c:     models.Bills,
		rec:   models.Record{"id": "b1", "name": "rent", "createdAt": stamp(time.Now())},
	}
	d := newDevice(t)

	require.NoError(t, d.eng.Enable(ctx, rs))
	require.NoError(t, rs.err)
	assert.True(t, d.eng.RealtimeActive())

	require.Eventually(t, func() bool { return d.get(t, models.Bills, "b1") != nil }, time.Second, 5*time.Millisecond)
}

func TestRealtime_StoppedOnDisable(t *testing.T) {
	ctx := context.Background()
	srv := memory.NewServer()
	rs := srv.Store(user)
	d := newDevice(t)
	require.NoError(t, d.eng.Enable(ctx, rs))
	d.eng.Disable()

	seedRemote(t, rs, models.Notes, models.Record{"id": "n1"})
	assert.Never(t, func() bool { return d.get(t, models.Notes, "n1") != nil }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestApplyRemoteChanges(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)

	d.put(t, models.Debts, models.Record{"id": "newer", "person": "local", "updatedAt": "2030-01-01T00:00:00.000Z"})
	d.put(t, models.Debts, models.Record{"id": "older", "person": "local", "updatedAt": "2020-01-01T00:00:00.000Z"})
	d.put(t, models.Debts, models.Record{"id": "removed"})

	changed, err := d.eng.applyRemoteChanges(ctx, models.Debts, []remote.Change{
		{Kind: remote.Modified, ID: "newer", Data: models.Record{"person": "remote", "updatedAt": "2025-01-01T00:00:00.000Z"}},
		{Kind: remote.Modified, ID: "older", Data: models.Record{"person": "remote", "updatedAt": "2025-01-01T00:00:00.000Z"}},
		{Kind: remote.Added, ID: "added", Data: models.Record{"person": "remote"}},
		{Kind: remote.Removed, ID: "removed"},
		{Kind: remote.Added},
	})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, "local", d.get(t, models.Debts, "newer")["person"])
	assert.Equal(t, "remote", d.get(t, models.Debts, "older")["person"])
	assert.Equal(t, models.Record{"id": "added", "person": "remote"}, d.get(t, models.Debts, "added"))
	assert.Nil(t, d.get(t, models.Debts, "removed"))
}

func TestApplyRemoteTombstones(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)

	d.put(t, models.Bills, models.Record{"id": "b1"})
	_, _, err := d.ledger.Queue(ctx, models.Bills, "b1")
	require.NoError(t, err)

	changed, err := d.eng.applyRemoteTombstones(ctx, []remote.Change{
		{Kind: remote.Removed, ID: "bills:zzz", Data: models.Record{"store": "bills", "id": "zzz"}},
		{Kind: remote.Added, ID: "wallets:w", Data: models.Record{"store": "wallets", "id": "w"}},
	})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = d.eng.applyRemoteTombstones(ctx, []remote.Change{
		{Kind: remote.Added, ID: "bills:b1", Data: models.Record{"store": "bills", "id": "b1", "deletedAt": "2024-01-01T00:00:00.000Z"}},
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, d.get(t, models.Bills, "b1"))
	assert.Empty(t, d.pending(t))
}

func TestScheduleRefresh_Debounces(t *testing.T) {
	srv := memory.NewServer()
	cfg := testConfig()
	cfg.RefreshDebounce = 30 * time.Millisecond
	d := newDevice(t, WithConfig(cfg))
	d.enable(t, srv.Store(user))
	base := d.state.n.Load()

	for range 5 {
		d.eng.scheduleRefresh()
	}

	require.Eventually(t, func() bool { return d.state.n.Load() == base+1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return d.state.n.Load() > base+1 }, 100*time.Millisecond, 10*time.Millisecond)
}
