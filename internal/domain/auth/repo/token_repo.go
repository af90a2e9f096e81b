package repo

import (
	"context"
	"github.com/google/uuid"
	"time"
)

// TokenEpochRepo keeps a per-user "not before" instant. Refresh tokens issued
// earlier than it are no longer accepted.
type TokenEpochRepo interface {
	Bump(ctx context.Context, userID uuid.UUID, at time.Time) error

	NotBefore(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
}
