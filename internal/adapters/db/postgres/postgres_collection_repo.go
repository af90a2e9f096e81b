package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/collection"
	"gorm.io/gorm"
)

type collectionRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"size:100;not null"`
	Description  *string   `gorm:"size:250"`
	IsPublic     bool      `gorm:"not null;default:false"`
	RegisteredAt time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (collectionRecord) TableName() string { return "collections" }

func toCollectionRecord(c collection.Collection) collectionRecord {
	return collectionRecord{
		ID:           c.ID,
		OwnerID:      c.OwnerID,
		Name:         c.Name,
		Description:  c.Description,
		IsPublic:     c.IsPublic,
		RegisteredAt: c.RegisteredAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (r collectionRecord) toModel() collection.Collection {
	return collection.Collection{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Name:         r.Name,
		Description:  r.Description,
		IsPublic:     r.IsPublic,
		RegisteredAt: r.RegisteredAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type PostgresCollectionRepo struct {
	db *gorm.DB
}

func NewPostgresCollectionRepo(db *gorm.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db}
}

func (p *PostgresCollectionRepo) Create(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	rec := toCollectionRecord(c)
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return collection.Collection{}, customErrors.WrapDatabase(err, "CreateCollection")
	}
	return rec.toModel(), nil
}

func (p *PostgresCollectionRepo) FindByID(ctx context.Context, id uuid.UUID) (collection.Collection, error) {
	var rec collectionRecord
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&rec)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return collection.Collection{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return collection.Collection{}, customErrors.WrapDatabase(err, "FindCollection")
	}
	return rec.toModel(), nil
}

func (p *PostgresCollectionRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]collection.Collection, error) {
	var recs []collectionRecord
	err := p.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("registered_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, customErrors.WrapDatabase(err, "ListCollectionsByOwner")
	}
	return toCollections(recs), nil
}

func (p *PostgresCollectionRepo) ListPublic(ctx context.Context, limit, offset int) ([]collection.Collection, error) {
	var recs []collectionRecord
	err := p.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("registered_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, customErrors.WrapDatabase(err, "ListPublicCollections")
	}
	return toCollections(recs), nil
}

func (p *PostgresCollectionRepo) Update(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	c.UpdatedAt = time.Now().UTC()
	res := p.db.WithContext(ctx).
		Model(&collectionRecord{}).
		Where("id = ? AND owner_id = ?", c.ID, c.OwnerID).
		Updates(map[string]any{
			"name":        c.Name,
			"description": c.Description,
			"is_public":   c.IsPublic,
			"updated_at":  c.UpdatedAt,
		})
	if err := res.Error; err != nil {
		return collection.Collection{}, customErrors.WrapDatabase(err, "UpdateCollection")
	}
	if res.RowsAffected == 0 {
		return collection.Collection{}, customErrors.ErrNotFound
	}
	return c, nil
}

func (p *PostgresCollectionRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res := p.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&collectionRecord{})
	if err := res.Error; err != nil {
		return customErrors.WrapDatabase(err, "DeleteCollection")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

func toCollections(recs []collectionRecord) []collection.Collection {
	out := make([]collection.Collection, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out
}
