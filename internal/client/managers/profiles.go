package managers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// DefaultProfileName names the profile created on first start.
const DefaultProfileName = "Personal"

type Profiles struct {
	*base
	categories *Categories
}

// EnsureDefault creates the default profile when the store has none. It
// reports whether one was created.
func (m *Profiles) EnsureDefault(ctx context.Context) (bool, error) {
	n, err := m.store.Count(ctx, models.Profiles)
	if err != nil || n > 0 {
		return false, err
	}
	_, err = m.Create(ctx, models.Profile{Name: DefaultProfileName})
	return err == nil, err
}

// Create adds a profile with the default categories and makes it active.
func (m *Profiles) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Profile{}, fmt.Errorf("%w: profile name is empty", common.ErrorInvalidArgument)
	}
	if p.IsLocked && !pinPattern.MatchString(p.PIN) {
		return models.Profile{}, ErrInvalidPIN
	}
	if p.Icon == "" {
		p.Icon = "bi:person-circle"
	}
	if p.Currency == "" {
		p.Currency = "TRY"
	}
	p.ProfileID = ""
	m.stampNew(&p.Base)

	if err := m.insert(ctx, models.Profiles, p); err != nil {
		return models.Profile{}, err
	}
	if _, err := m.categories.AddDefaults(ctx, p.ID); err != nil {
		return p, err
	}
	if err := m.state.SetActiveProfile(ctx, p.ID); err != nil {
		return p, err
	}
	return p, nil
}

// Update changes name, icon, currency and opening balance.
func (m *Profiles) Update(ctx context.Context, p models.Profile) (models.Profile, error) {
	cur, err := load[models.Profile](ctx, m.base, models.Profiles, p.ID)
	if err != nil {
		return models.Profile{}, err
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		cur.Name = name
	}
	if p.Icon != "" {
		cur.Icon = p.Icon
	}
	if p.Currency != "" {
		cur.Currency = p.Currency
	}
	cur.OpeningBalance = p.OpeningBalance
	cur.UpdatedAt = m.timestamp()
	return cur, m.save(ctx, models.Profiles, cur)
}

// Switch activates a profile. A locked profile needs its PIN.
func (m *Profiles) Switch(ctx context.Context, id, pin string) error {
	p, err := load[models.Profile](ctx, m.base, models.Profiles, id)
	if err != nil {
		return err
	}
	if p.IsLocked && p.PIN != "" && pin != p.PIN {
		return ErrProfileLocked
	}
	return m.state.SetActiveProfile(ctx, id)
}

// Lock protects a profile with a 4 to 6 digit PIN.
func (m *Profiles) Lock(ctx context.Context, id, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	return m.setLock(ctx, id, true, pin)
}

// Unlock removes the PIN after checking it.
func (m *Profiles) Unlock(ctx context.Context, id, pin string) error {
	p, err := load[models.Profile](ctx, m.base, models.Profiles, id)
	if err != nil {
		return err
	}
	if p.IsLocked && pin != p.PIN {
		return ErrWrongPIN
	}
	return m.setLock(ctx, id, false, "")
}

func (m *Profiles) setLock(ctx context.Context, id string, locked bool, pin string) error {
	p, err := load[models.Profile](ctx, m.base, models.Profiles, id)
	if err != nil {
		return err
	}
	p.IsLocked = locked
	p.PIN = pin
	p.UpdatedAt = m.timestamp()
	return m.save(ctx, models.Profiles, p)
}

// Delete removes a profile; the last one cannot be removed. Deleting the
// active profile switches to the first remaining one.
func (m *Profiles) Delete(ctx context.Context, id string) error {
	profiles, err := m.store.GetAll(ctx, models.Profiles)
	if err != nil {
		return err
	}
	if len(profiles) <= 1 {
		return ErrLastProfile
	}

	wasActive := m.state.Snapshot().ActiveProfileID() == id
	if err := m.remove(ctx, models.Profiles, id); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}
	for _, p := range profiles {
		if p.ID() != id {
			return m.state.SetActiveProfile(ctx, p.ID())
		}
	}
	return nil
}
