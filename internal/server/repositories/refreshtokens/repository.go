// Package refreshtokens stores the opaque refresh tokens handed out at
// login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, expiring at expires.
	Create(ctx context.Context, userID, token string, expires time.Time) error
	// Find returns common.ErrorNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete reports whether the token existed. Rotation relies on it so a
	// token can be redeemed only once.
	Delete(ctx context.Context, token string) (bool, error)
	// DeleteExpired removes every token of userID expired at now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
