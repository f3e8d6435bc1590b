package syncstate

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/metadata"
)

// Prefs holds small per-device preferences.
type Prefs struct {
	repo metadata.Repository
}

func NewPrefs(repo metadata.Repository) *Prefs {
	return &Prefs{repo: repo}
}

// ActiveProfileID returns the remembered profile, or "" if none.
func (p *Prefs) ActiveProfileID(ctx context.Context) (string, error) {
	v, err := p.repo.Get(ctx, KeyActiveProfileID)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (p *Prefs) SetActiveProfileID(ctx context.Context, id string) error {
	if id == "" {
		return p.repo.Delete(ctx, KeyActiveProfileID)
	}
	return p.repo.Set(ctx, KeyActiveProfileID, []byte(id))
}
