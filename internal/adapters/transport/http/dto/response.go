package dto

import (
	"time"

	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/collection"
)

// AuthResponse never carries the refresh token; it travels in a cookie.
type AuthResponse struct {
	UserID      string     `json:"user_id"`
	Role        model.Role `json:"role"`
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
}

type AccessResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         model.Role `json:"role"`
	IsActive     bool       `json:"is_active"`
	Timezone     string     `json:"timezone"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type CollectionResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	IsPublic     bool      `json:"is_public"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func NewAuthResponse(pair model.TokenPair) AuthResponse {
	return AuthResponse{
		UserID:      pair.UserID.String(),
		Role:        pair.Role,
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(pair.AccessTTL.Seconds()),
	}
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive,
		Timezone:     u.Timezone,
		RegisteredAt: u.RegisteredAt,
		LastLogin:    u.LastLogin,
	}
}

func NewCollectionResponse(c collection.Collection) CollectionResponse {
	return CollectionResponse{
		ID:           c.ID.String(),
		OwnerID:      c.OwnerID.String(),
		Name:         c.Name,
		Description:  c.Description,
		IsPublic:     c.IsPublic,
		RegisteredAt: c.RegisteredAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func NewCollectionList(cs []collection.Collection) []CollectionResponse {
	out := make([]CollectionResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCollectionResponse(c))
	}
	return out
}
