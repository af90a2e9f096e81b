package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/collection"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Guard interface {
	Resolve(ctx context.Context, token string) (model.Identity, error)
	AuthorizeMutation(ctx context.Context, token string, ownerRef uuid.UUID) (model.Identity, error)
}

type Service interface {
	Create(ctx context.Context, token string, in dto.CreateCollectionDTO) (collection.Collection, error)
	ListMine(ctx context.Context, token string) ([]collection.Collection, error)
	ListPublic(ctx context.Context, limit, offset int) ([]collection.Collection, error)
	Get(ctx context.Context, token string, id uuid.UUID) (collection.Collection, error)
	Update(ctx context.Context, token string, id uuid.UUID, in dto.UpdateCollectionDTO) (collection.Collection, error)
	SwitchArea(ctx context.Context, token string, id uuid.UUID, in dto.SwitchAreaDTO) (collection.Collection, error)
	Delete(ctx context.Context, token string, id uuid.UUID) error
}

type collectionService struct {
	repo  collection.Repo
	guard Guard
	v     *validator.Validate
	log   *zap.Logger
	now   func() time.Time
}

func New(repo collection.Repo, guard Guard, v *validator.Validate, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &collectionService{repo: repo, guard: guard, v: v, log: logger, now: time.Now}
}

func (s *collectionService) Create(ctx context.Context, token string, in dto.CreateCollectionDTO) (collection.Collection, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimDescription(in.Description)
	if err := s.validate(in); err != nil {
		return collection.Collection{}, err
	}

	id, err := s.guard.Resolve(ctx, token)
	if err != nil {
		return collection.Collection{}, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, collection.Collection{
		ID:           uuid.New(),
		OwnerID:      id.UserID,
		Name:         in.Name,
		Description:  emptyToNil(in.Description),
		IsPublic:     in.IsPublic,
		RegisteredAt: now,
		UpdatedAt:    now,
	})
	if err != nil {
		return collection.Collection{}, err
	}
	s.log.Info("collection created",
		zap.String("collection_id", created.ID.String()),
		zap.String("owner_id", created.OwnerID.String()))
	return created, nil
}

func (s *collectionService) ListMine(ctx context.Context, token string) ([]collection.Collection, error) {
	id, err := s.guard.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, id.UserID)
}

func (s *collectionService) ListPublic(ctx context.Context, limit, offset int) ([]collection.Collection, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPublic(ctx, limit, offset)
}

// Get returns public collections to anyone. A private collection is only
// visible to its owner; everybody else gets ErrNotFound.
func (s *collectionService) Get(ctx context.Context, token string, id uuid.UUID) (collection.Collection, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if c.IsPublic {
		return c, nil
	}
	if strings.TrimSpace(token) == "" {
		return collection.Collection{}, customErrors.ErrNotFound
	}
	caller, err := s.guard.Resolve(ctx, token)
	if err != nil {
		return collection.Collection{}, err
	}
	if caller.UserID != c.OwnerID {
		return collection.Collection{}, customErrors.ErrNotFound
	}
	return c, nil
}

func (s *collectionService) Update(ctx context.Context, token string, id uuid.UUID, in dto.UpdateCollectionDTO) (collection.Collection, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	in.Description = trimDescription(in.Description)
	if err := s.validate(in); err != nil {
		return collection.Collection{}, err
	}
	return s.mutate(ctx, token, id, collection.Patch{
		Name:        in.Name,
		Description: in.Description,
		IsPublic:    in.IsPublic,
	})
}

func (s *collectionService) SwitchArea(ctx context.Context, token string, id uuid.UUID, in dto.SwitchAreaDTO) (collection.Collection, error) {
	if err := s.v.Struct(in); err != nil {
		return collection.Collection{}, customErrors.NewInvalidArgument(err.Error())
	}
	return s.mutate(ctx, token, id, collection.Patch{IsPublic: in.IsPublic})
}

func (s *collectionService) Delete(ctx context.Context, token string, id uuid.UUID) error {
	caller, current, err := s.owned(ctx, token, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, current.ID, caller.UserID); err != nil {
		return err
	}
	s.log.Info("collection deleted", zap.String("collection_id", id.String()))
	return nil
}

func (s *collectionService) mutate(ctx context.Context, token string, id uuid.UUID, p collection.Patch) (collection.Collection, error) {
	_, current, err := s.owned(ctx, token, id)
	if err != nil {
		return collection.Collection{}, err
	}
	p.Apply(&current)
	current.Description = emptyToNil(current.Description)
	return s.repo.Update(ctx, current)
}

// owned loads the collection and lets the guard check the caller owns it.
// The repo scopes the following write by owner id again.
func (s *collectionService) owned(ctx context.Context, token string, id uuid.UUID) (model.Identity, collection.Collection, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Identity{}, collection.Collection{}, err
	}
	caller, err := s.guard.AuthorizeMutation(ctx, token, current.OwnerID)
	if err != nil {
		if customErrors.IsForbidden(err) {
			s.log.Warn("collection mutation denied", zap.String("collection_id", id.String()))
		}
		return model.Identity{}, collection.Collection{}, err
	}
	return caller, current, nil
}

func (s *collectionService) validate(in any) error {
	err := s.v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return customErrors.NewInvalidArgument(err.Error())
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			return fmt.Errorf("%w: must be 1..%d characters", customErrors.ErrInvalidName, collection.MaxNameLength)
		case "Description":
			return fmt.Errorf("%w: at most %d characters", customErrors.ErrInvalidDescription, collection.MaxDescriptionLength)
		}
	}
	return customErrors.NewInvalidArgument(err.Error())
}

func trimDescription(d *string) *string {
	if d == nil {
		return nil
	}
	t := strings.TrimSpace(*d)
	return &t
}

func emptyToNil(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	return d
}
