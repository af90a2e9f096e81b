package collection

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 250
)

type Collection struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Description  *string
	IsPublic     bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// Patch holds the fields an owner may change. Nil means "leave as is".
type Patch struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

func (p Patch) Apply(c *Collection) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = p.Description
	}
	if p.IsPublic != nil {
		c.IsPublic = *p.IsPublic
	}
}

// Repo persists collections. Update and Delete are scoped by owner id and
// report ErrNotFound when no row matches both id and owner.
type Repo interface {
	Create(ctx context.Context, c Collection) (Collection, error)
	FindByID(ctx context.Context, id uuid.UUID) (Collection, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Collection, error)
	ListPublic(ctx context.Context, limit, offset int) ([]Collection, error)
	Update(ctx context.Context, c Collection) (Collection, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
