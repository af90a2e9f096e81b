package guard

import (
	"context"
	"strings"

	"github.com/google/uuid"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/jwt"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/metrics"
)

// OwnershipGuard turns an access token into an identity and checks it
// against the owner of the resource being changed.
type OwnershipGuard struct {
	verifier jwt.AccessVerifier
}

func New(v jwt.AccessVerifier) *OwnershipGuard {
	return &OwnershipGuard{verifier: v}
}

func (g *OwnershipGuard) Resolve(_ context.Context, token string) (model.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Identity{}, customErrors.ErrUnauthorized
	}
	id, err := g.verifier.VerifyAccess(token)
	if err != nil {
		return model.Identity{}, customErrors.Unauthorized(err)
	}
	return id, nil
}

func (g *OwnershipGuard) Authorize(id model.Identity, ownerRef uuid.UUID) error {
	if id.UserID == uuid.Nil || id.UserID != ownerRef {
		metrics.OwnershipDenials.Inc()
		return customErrors.ErrForbidden
	}
	return nil
}

func (g *OwnershipGuard) AuthorizeMutation(ctx context.Context, token string, ownerRef uuid.UUID) (model.Identity, error) {
	id, err := g.Resolve(ctx, token)
	if err != nil {
		return model.Identity{}, err
	}
	if err := g.Authorize(id, ownerRef); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}
