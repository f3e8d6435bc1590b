package managers

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/models"
)

const (
	defaultNoteTitle = "Untitled note"
	defaultNoteColor = "#6366f1"
)

type Notes struct {
	*base
}

func (m *Notes) Add(ctx context.Context, n models.Note) (models.Note, error) {
	if strings.TrimSpace(n.Title) == "" {
		n.Title = defaultNoteTitle
	}
	if n.Color == "" {
		n.Color = defaultNoteColor
	}
	if n.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Note{}, err
		}
		n.ProfileID = id
	}
	m.stampNew(&n.Base)
	n.UpdatedAt = n.CreatedAt
	return n, m.insert(ctx, models.Notes, n)
}

func (m *Notes) Update(ctx context.Context, n models.Note) (models.Note, error) {
	cur, err := load[models.Note](ctx, m.base, models.Notes, n.ID)
	if err != nil {
		return models.Note{}, err
	}
	if strings.TrimSpace(n.Title) == "" {
		n.Title = defaultNoteTitle
	}
	n.ProfileID = cur.ProfileID
	n.CreatedAt = cur.CreatedAt
	n.UpdatedAt = m.timestamp()
	return n, m.save(ctx, models.Notes, n)
}

func (m *Notes) TogglePin(ctx context.Context, id string) (models.Note, error) {
	n, err := load[models.Note](ctx, m.base, models.Notes, id)
	if err != nil {
		return models.Note{}, err
	}
	n.IsPinned = !n.IsPinned
	n.UpdatedAt = m.timestamp()
	return n, m.save(ctx, models.Notes, n)
}

func (m *Notes) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, models.Notes, id)
}

// Search returns the active profile's notes whose title, content or tags
// contain query, case-insensitively. Pinned notes come first.
func (m *Notes) Search(query string) []models.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	var pinned, rest []models.Record
	for _, n := range m.state.Snapshot().Notes {
		if q != "" && !noteMatches(n, q) {
			continue
		}
		if n["isPinned"] == true {
			pinned = append(pinned, n)
		} else {
			rest = append(rest, n)
		}
	}
	return append(pinned, rest...)
}

func noteMatches(n models.Record, q string) bool {
	if strings.Contains(strings.ToLower(n.String("title")), q) ||
		strings.Contains(strings.ToLower(n.String("content")), q) {
		return true
	}
	tags, _ := n["tags"].([]any)
	for _, t := range tags {
		if s, ok := t.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
