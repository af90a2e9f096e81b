package repo

import (
	"context"
	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"time"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error

	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
