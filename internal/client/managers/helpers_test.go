package managers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories"
	"github.com/dmitrijs2005/finsync/internal/client/state"
	"github.com/dmitrijs2005/finsync/internal/client/syncstate"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeSync struct {
	mu      sync.Mutex
	queued  []string
	cleared []string
	changes int
	flushed bool // ClearPendingDeletion reports nothing pending
}

func (s *fakeSync) QueueDeletion(_ context.Context, c models.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, models.DeletionKey(c, id))
	return nil
}

func (s *fakeSync) ClearPendingDeletion(_ context.Context, c models.Collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, models.DeletionKey(c, id))
	return !s.flushed, nil
}

func (s *fakeSync) LocalChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes++
}

type fixture struct {
	ctx   context.Context
	m     *Managers
	st    *state.Container
	sync  *fakeSync
	repos *repositories.Repositories
	clock *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos, err := repositories.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		ctx:   ctx,
		st:    state.New(repos.Records, syncstate.NewPrefs(repos.Metadata), nil),
		sync:  &fakeSync{},
		repos: repos,
		clock: &now,
	}
	seq := 0
	f.m = New(repos.Records, f.st, f.sync,
		WithClock(func() time.Time { return *f.clock }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
	return f
}

// withProfile creates the default profile and makes it active.
func (f *fixture) withProfile(t *testing.T) string {
	t.Helper()
	created, err := f.m.Profiles.EnsureDefault(f.ctx)
	require.NoError(t, err)
	require.True(t, created)
	return f.st.Snapshot().ActiveProfileID()
}

func (f *fixture) tick(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) count(t *testing.T, c models.Collection) int {
	t.Helper()
	n, err := f.repos.Records.Count(f.ctx, c)
	require.NoError(t, err)
	return n
}
