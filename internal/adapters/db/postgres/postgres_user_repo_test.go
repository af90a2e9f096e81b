package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// every new connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&userRecord{}, &collectionRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newUser(email, username string) model.User {
	now := time.Now().UTC()
	return model.User{
		ID:              uuid.New(),
		Email:           email,
		Username:        username,
		PasswordHash:    "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		IsAcceptedTerms: true,
		IsActive:        true,
		Timezone:        "UTC",
		Role:            model.RoleUser,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}
}

func TestPostgresUserRepo_CRUD(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()
	user := newUser("e@e.io", "u")

	id, err := repo.CreateUser(ctx, user)
	if err != nil || id != user.ID {
		t.Fatalf("create %v", err)
	}
	got, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil || got.ID != user.ID {
		t.Fatalf("get by email %v", err)
	}
	require.Equal(t, model.RoleUser, got.Role)
	require.True(t, got.IsActive)

	got2, err := repo.GetUserByID(ctx, user.ID)
	if err != nil || got2.Email != user.Email {
		t.Fatalf("get by id %v", err)
	}

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	got3, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got3.PasswordHash)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	got4, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got4.LastLogin)
	require.True(t, at.Equal(*got4.LastLogin))
}

func TestPostgresUserRepo_NotFound(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	_, err := repo.GetUserByEmail(ctx, "nobody@e.io")
	require.True(t, customErrors.IsNotFound(err))
	_, err = repo.GetUserByID(ctx, uuid.New())
	require.True(t, customErrors.IsNotFound(err))
	require.True(t, customErrors.IsNotFound(repo.UpdatePassword(ctx, uuid.New(), "h")))
	require.True(t, customErrors.IsNotFound(repo.UpdateLastLogin(ctx, uuid.New(), time.Now())))
}

func TestPostgresUserRepo_DuplicateEmail(t *testing.T) {
	db := setupDB(t)
	repo := NewPostgresUserRepo(db)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, newUser("dup@e.io", "first"))
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, newUser("dup@e.io", "second"))
	require.ErrorIs(t, err, customErrors.ErrAlreadyExists)

	var count int64
	require.NoError(t, db.Model(&userRecord{}).Where("email = ?", "dup@e.io").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPostgresUserRepo_UnknownRoleIDFallsBack(t *testing.T) {
	db := setupDB(t)
	repo := NewPostgresUserRepo(db)
	ctx := context.Background()

	u := newUser("r@e.io", "r")
	_, err := repo.CreateUser(ctx, u)
	require.NoError(t, err)
	require.NoError(t, db.Model(&userRecord{}).Where("id = ?", u.ID).Update("role_id", 42).Error)

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, got.Role)
}
