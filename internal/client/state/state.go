// Package state holds the in-memory mirror of the active profile's data.
// The record store is the source of truth; Refresh rebuilds the mirror from
// it and notifies observers.
package state

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
)

// Reader is the read side of the local record store.
type Reader interface {
	GetAll(ctx context.Context, c models.Collection) ([]models.Record, error)
	GetAllByIndex(ctx context.Context, c models.Collection, field, value string) ([]models.Record, error)
}

// Preferences remembers the active profile across restarts.
type Preferences interface {
	ActiveProfileID(ctx context.Context) (string, error)
	SetActiveProfileID(ctx context.Context, id string) error
}

// Observer is notified with every new snapshot.
type Observer interface {
	StateChanged(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) StateChanged(s Snapshot) { f(s) }

// Container owns the current Snapshot. It is safe for concurrent use.
type Container struct {
	store Reader
	prefs Preferences
	log   logging.Logger
	now   func() time.Time

	refreshMu sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot
	observers map[int]Observer
	nextID    int
}

func New(store Reader, prefs Preferences, log logging.Logger) *Container {
	return &Container{
		store:     store,
		prefs:     prefs,
		log:       logging.OrNop(log).With("module", "state"),
		now:       time.Now,
		observers: make(map[int]Observer),
	}
}

// Snapshot returns the current mirror. Records inside it are shared and
// must not be modified.
func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe registers o and returns a function removing it.
func (c *Container) Subscribe(o Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers[id] = o
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Refresh reloads profiles and the active profile's collections from the
// store, publishes the result and notifies observers. Concurrent calls run
// one after another so the last published snapshot is the newest.
func (c *Container) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = snap
	observers := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	for _, o := range observers {
		o.StateChanged(snap)
	}
	c.log.Debug(ctx, "state refreshed",
		"profile", snap.ActiveProfileID(),
		"transactions", len(snap.Transactions),
	)
	return nil
}

// SetActiveProfile remembers id as the active profile and reloads.
func (c *Container) SetActiveProfile(ctx context.Context, id string) error {
	if err := c.prefs.SetActiveProfileID(ctx, id); err != nil {
		return fmt.Errorf("save active profile: %w", err)
	}
	return c.Refresh(ctx)
}

func (c *Container) load(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)

	if snap.Profiles, err = c.store.GetAll(ctx, models.Profiles); err != nil {
		return Snapshot{}, fmt.Errorf("load profiles: %w", err)
	}

	savedID, err := c.prefs.ActiveProfileID(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load active profile: %w", err)
	}
	if i := slices.IndexFunc(snap.Profiles, func(p models.Record) bool { return p.ID() == savedID }); i >= 0 {
		snap.ActiveProfile = snap.Profiles[i]
	} else if len(snap.Profiles) > 0 {
		snap.ActiveProfile = snap.Profiles[0]
	}

	// debts and bills are shared by every profile
	if snap.Debts, err = c.store.GetAll(ctx, models.Debts); err != nil {
		return Snapshot{}, fmt.Errorf("load debts: %w", err)
	}
	if snap.Bills, err = c.store.GetAll(ctx, models.Bills); err != nil {
		return Snapshot{}, fmt.Errorf("load bills: %w", err)
	}

	if snap.ActiveProfile != nil {
		profileID := snap.ActiveProfile.ID()
		scoped := []struct {
			c    models.Collection
			dest *[]models.Record
		}{
			{models.Transactions, &snap.Transactions},
			{models.Categories, &snap.Categories},
			{models.Investments, &snap.Investments},
			{models.Notes, &snap.Notes},
		}
		for _, s := range scoped {
			if *s.dest, err = c.store.GetAllByIndex(ctx, s.c, models.FieldProfileID, profileID); err != nil {
				return Snapshot{}, fmt.Errorf("load %s: %w", s.c, err)
			}
		}
	}

	slices.SortStableFunc(snap.Transactions, func(a, b models.Record) int {
		return models.ParseTime(b["date"]).Compare(models.ParseTime(a["date"]))
	})

	snap.LoadedAt = c.now()
	return snap, nil
}
