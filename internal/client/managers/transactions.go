package managers

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/finsync/internal/models"
)

// MaxHistory bounds the undo stack.
const MaxHistory = 50

type actionKind int

const (
	actionAdd actionKind = iota
	actionUpdate
	actionDelete
)

type action struct {
	kind   actionKind
	before models.Transaction
	after  models.Transaction
}

// Transactions manages income and expense entries with an undo history.
type Transactions struct {
	*base

	mu   sync.Mutex
	undo []action
	redo []action
}

func (m *Transactions) validate(t models.Transaction) error {
	if err := requireOneOf("transaction type", t.Type, models.Income, models.Expense); err != nil {
		return err
	}
	return requirePositive("amount", t.Amount)
}

func (m *Transactions) Add(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := m.validate(t); err != nil {
		return models.Transaction{}, err
	}
	if t.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Transaction{}, err
		}
		t.ProfileID = id
	}
	if t.Date == "" {
		t.Date = m.now().Format(models.DateLayout)
	}
	m.stampNew(&t.Base)
	if err := m.insert(ctx, models.Transactions, t); err != nil {
		return models.Transaction{}, err
	}
	m.record(action{kind: actionAdd, after: t})
	return t, nil
}

func (m *Transactions) Update(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := m.validate(t); err != nil {
		return models.Transaction{}, err
	}
	cur, err := load[models.Transaction](ctx, m.base, models.Transactions, t.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	t.ProfileID = cur.ProfileID
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = m.timestamp()
	if err := m.save(ctx, models.Transactions, t); err != nil {
		return models.Transaction{}, err
	}
	m.record(action{kind: actionUpdate, before: cur, after: t})
	return t, nil
}

func (m *Transactions) Delete(ctx context.Context, id string) error {
	cur, err := load[models.Transaction](ctx, m.base, models.Transactions, id)
	if err != nil {
		return err
	}
	if err := m.remove(ctx, models.Transactions, id); err != nil {
		return err
	}
	m.record(action{kind: actionDelete, before: cur})
	return nil
}

func (m *Transactions) record(a action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = append(m.undo, a)
	if len(m.undo) > MaxHistory {
		m.undo = m.undo[len(m.undo)-MaxHistory:]
	}
	m.redo = nil
}

func (m *Transactions) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Transactions) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Undo reverts the most recent add, update or delete.
func (m *Transactions) Undo(ctx context.Context) error {
	a, ok := pop(&m.mu, &m.undo)
	if !ok {
		return ErrNothingToUndo
	}

	var err error
	switch a.kind {
	case actionAdd:
		err = m.remove(ctx, models.Transactions, a.after.ID)
	case actionUpdate:
		prev := a.before
		prev.UpdatedAt = m.timestamp()
		err = m.save(ctx, models.Transactions, prev)
	case actionDelete:
		a.before, err = m.restore(ctx, a.before)
	}
	if err != nil {
		push(&m.mu, &m.undo, a)
		return err
	}
	push(&m.mu, &m.redo, a)
	return nil
}

// Redo reapplies the most recently undone action.
func (m *Transactions) Redo(ctx context.Context) error {
	a, ok := pop(&m.mu, &m.redo)
	if !ok {
		return ErrNothingToRedo
	}

	var err error
	switch a.kind {
	case actionAdd:
		a.after, err = m.restore(ctx, a.after)
	case actionUpdate:
		next := a.after
		next.UpdatedAt = m.timestamp()
		err = m.save(ctx, models.Transactions, next)
	case actionDelete:
		err = m.remove(ctx, models.Transactions, a.before.ID)
	}
	if err != nil {
		push(&m.mu, &m.redo, a)
		return err
	}
	push(&m.mu, &m.undo, a)
	return nil
}

// restore re-adds a deleted transaction. When its deletion may already
// have reached the remote, a fresh id is used so the tombstone there does
// not remove it again.
func (m *Transactions) restore(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if m.sync != nil {
		cleared, err := m.sync.ClearPendingDeletion(ctx, models.Transactions, t.ID)
		if err != nil {
			return t, err
		}
		if !cleared {
			t.ID = m.newID()
		}
	}
	t.CreatedAt = m.timestamp()
	t.UpdatedAt = ""
	return t, m.insert(ctx, models.Transactions, t)
}

func pop(mu *sync.Mutex, s *[]action) (action, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(*s) == 0 {
		return action{}, false
	}
	a := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return a, true
}

func push(mu *sync.Mutex, s *[]action, a action) {
	mu.Lock()
	defer mu.Unlock()
	*s = append(*s, a)
}
