package model

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID              uuid.UUID
	Username        string
	Email           string
	PasswordHash    string
	IsAcceptedTerms bool
	IsActive        bool
	IsSuperuser     bool
	Timezone        string
	Role            Role
	RegisteredAt    time.Time
	LastLogin       *time.Time
	UpdatedAt       time.Time
}

// Identity is what a verified access or refresh token says about its bearer.
type Identity struct {
	UserID   uuid.UUID
	Role     Role
	IssuedAt time.Time
}

type ResetClaims struct {
	UserID    uuid.UUID
	Stamp     string
	ExpiresAt time.Time
}

type Token struct {
	Value     string
	ExpiresAt time.Time
	ID        string
}

func (t Token) TTL(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	UserID       uuid.UUID
	Role         Role
}

type AccessGrant struct {
	AccessToken string
	AccessTTL   time.Duration
	UserID      uuid.UUID
	Role        Role
}
