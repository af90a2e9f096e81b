package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"gorm.io/gorm"
)

type userRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username        string    `gorm:"size:50;not null;uniqueIndex"`
	Email           string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash    string    `gorm:"not null"`
	IsAcceptedTerms bool      `gorm:"not null;default:false"`
	IsActive        bool      `gorm:"not null;default:true"`
	IsSuperuser     bool      `gorm:"not null;default:false"`
	Timezone        string    `gorm:"size:64;not null;default:UTC"`
	RoleID          int       `gorm:"not null"`
	RegisteredAt    time.Time `gorm:"not null"`
	LastLogin       *time.Time
	UpdatedAt       time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func toUserRecord(u model.User) userRecord {
	return userRecord{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		IsAcceptedTerms: u.IsAcceptedTerms,
		IsActive:        u.IsActive,
		IsSuperuser:     u.IsSuperuser,
		Timezone:        u.Timezone,
		RoleID:          u.Role.ID(),
		RegisteredAt:    u.RegisteredAt,
		LastLogin:       u.LastLogin,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID:              r.ID,
		Username:        r.Username,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		IsAcceptedTerms: r.IsAcceptedTerms,
		IsActive:        r.IsActive,
		IsSuperuser:     r.IsSuperuser,
		Timezone:        r.Timezone,
		Role:            model.RoleFromID(r.RoleID),
		RegisteredAt:    r.RegisteredAt,
		LastLogin:       r.LastLogin,
		UpdatedAt:       r.UpdatedAt,
	}
}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	rec := toUserRecord(user)
	res := p.db.WithContext(ctx).Create(&rec)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, customErrors.ErrAlreadyExists
		}
		return uuid.Nil, customErrors.WrapDatabase(err, "CreateUser")
	}
	return rec.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.first(ctx, "GetUserByEmail", "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.first(ctx, "GetUserByID", "id = ?", id)
}

func (p *PostgresUserRepo) first(ctx context.Context, op string, query string, arg any) (model.User, error) {
	var rec userRecord
	res := p.db.WithContext(ctx).Where(query, arg).First(&rec)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapDatabase(err, op)
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return p.update(ctx, "UpdatePassword", id, map[string]any{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	})
}

func (p *PostgresUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return p.update(ctx, "UpdateLastLogin", id, map[string]any{
		"last_login": at,
	})
}

func (p *PostgresUserRepo) update(ctx context.Context, op string, id uuid.UUID, fields map[string]any) error {
	res := p.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(fields)
	if err := res.Error; err != nil {
		return customErrors.WrapDatabase(err, op)
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}
