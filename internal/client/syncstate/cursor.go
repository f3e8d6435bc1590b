package syncstate

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finsync/internal/models"
)

// Cursor is the persisted lastSyncTime, stored as an ISO-8601 string.
type Cursor struct {
	repo metadata.Repository
}

func NewCursor(repo metadata.Repository) *Cursor {
	return &Cursor{repo: repo}
}

// Raw returns the stored value as is; ok is false when nothing is stored.
func (c *Cursor) Raw(ctx context.Context) (string, bool, error) {
	v, err := c.repo.Get(ctx, KeyLastSyncTime)
	if err != nil {
		return "", false, fmt.Errorf("read sync cursor: %w", err)
	}
	if v == nil {
		return "", false, nil
	}
	return string(v), true, nil
}

// Last parses the stored cursor. ok is false when the cursor is missing or
// cannot be parsed.
func (c *Cursor) Last(ctx context.Context) (t time.Time, ok bool, err error) {
	raw, found, err := c.Raw(ctx)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (c *Cursor) Set(ctx context.Context, t time.Time) error {
	if err := c.repo.Set(ctx, KeyLastSyncTime, []byte(models.FormatTime(t))); err != nil {
		return fmt.Errorf("write sync cursor: %w", err)
	}
	return nil
}

func (c *Cursor) Clear(ctx context.Context) error {
	if err := c.repo.Delete(ctx, KeyLastSyncTime); err != nil {
		return fmt.Errorf("clear sync cursor: %w", err)
	}
	return nil
}
