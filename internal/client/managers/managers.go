// Package managers implements the per-entity write operations. Every write
// goes to the local store first, then the in-memory state is refreshed and
// the sync engine is told about the change.
package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/client/state"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNoActiveProfile = errors.New("no active profile")
	ErrProfileLocked   = errors.New("profile is locked")
	ErrWrongPIN        = errors.New("wrong PIN")
	ErrInvalidPIN      = errors.New("PIN must be 4 to 6 digits")
	ErrLastProfile     = errors.New("at least one profile must remain")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)

// Sync is the part of the sync engine the managers use. It may be nil.
type Sync interface {
	QueueDeletion(ctx context.Context, store models.Collection, id string) error
	ClearPendingDeletion(ctx context.Context, store models.Collection, id string) (bool, error)
	LocalChanged()
}

// State is the application state container.
type State interface {
	Refresh(ctx context.Context) error
	Snapshot() state.Snapshot
	SetActiveProfile(ctx context.Context, id string) error
}

type base struct {
	store records.Repository
	state State
	sync  Sync
	now   func() time.Time
	newID func() string
	log   logging.Logger
}

// Managers bundles one manager per collection.
type Managers struct {
	Profiles     *Profiles
	Transactions *Transactions
	Categories   *Categories
	Debts        *Debts
	Investments  *Investments
	Bills        *Bills
	Notes        *Notes
}

type Option func(*base)

func WithClock(now func() time.Time) Option { return func(b *base) { b.now = now } }

func WithIDGenerator(fn func() string) Option { return func(b *base) { b.newID = fn } }

func WithLogger(l logging.Logger) Option { return func(b *base) { b.log = logging.OrNop(l) } }

func New(store records.Repository, st State, sync Sync, opts ...Option) *Managers {
	b := &base{
		store: store,
		state: st,
		sync:  sync,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("module", "managers")

	categories := &Categories{base: b}
	return &Managers{
		Profiles:     &Profiles{base: b, categories: categories},
		Transactions: &Transactions{base: b},
		Categories:   categories,
		Debts:        &Debts{base: b},
		Investments:  &Investments{base: b},
		Bills:        &Bills{base: b},
		Notes:        &Notes{base: b},
	}
}

func load[T any](ctx context.Context, b *base, c models.Collection, id string) (T, error) {
	var zero T
	rec, err := b.store.Get(ctx, c, id)
	if err != nil {
		return zero, err
	}
	if rec == nil {
		return zero, fmt.Errorf("%w: %s/%s", common.ErrorNotFound, c, id)
	}
	return models.Decode[T](rec)
}

func (b *base) timestamp() string {
	return models.FormatTime(b.now())
}

func (b *base) stampNew(bs *models.Base) {
	if bs.ID == "" {
		bs.ID = b.newID()
	}
	bs.CreatedAt = b.timestamp()
	bs.UpdatedAt = ""
}

func (b *base) activeProfileID() (string, error) {
	id := b.state.Snapshot().ActiveProfileID()
	if id == "" {
		return "", ErrNoActiveProfile
	}
	return id, nil
}

func (b *base) insert(ctx context.Context, c models.Collection, v any) error {
	rec, err := models.Encode(v)
	if err != nil {
		return err
	}
	if err := b.store.Add(ctx, c, rec); err != nil {
		return err
	}
	b.changed(ctx)
	return nil
}

func (b *base) save(ctx context.Context, c models.Collection, v any) error {
	rec, err := models.Encode(v)
	if err != nil {
		return err
	}
	if err := b.store.Put(ctx, c, rec); err != nil {
		return err
	}
	b.changed(ctx)
	return nil
}

// remove deletes locally and queues the deletion for the remote.
func (b *base) remove(ctx context.Context, c models.Collection, id string) error {
	rec, err := b.store.Get(ctx, c, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s/%s", common.ErrorNotFound, c, id)
	}
	if err := b.store.Delete(ctx, c, id); err != nil {
		return err
	}
	if b.sync != nil {
		if err := b.sync.QueueDeletion(ctx, c, id); err != nil {
			b.log.Warn(ctx, "queue deletion failed", "collection", c, "id", id, "error", err)
		}
	}
	b.changed(ctx)
	return nil
}

func (b *base) changed(ctx context.Context) {
	if err := b.state.Refresh(ctx); err != nil {
		b.log.Warn(ctx, "state refresh failed", "error", err)
	}
	if b.sync != nil {
		b.sync.LocalChanged()
	}
}

func requirePositive(field string, v interface{ IsPositive() bool }) error {
	if !v.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", common.ErrorInvalidArgument, field)
	}
	return nil
}

func requireOneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q", common.ErrorInvalidArgument, field, v)
}
