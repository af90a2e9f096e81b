package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
	KindReset   = "reset"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// ResetClaims carry no role. Stamp ties the token to the password hash it
// was issued against.
type ResetClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	Stamp     string `json:"pws"`
}

type AccessVerifier interface {
	VerifyAccess(raw string) (model.Identity, error)
}

type TokenAuthority interface {
	AccessVerifier

	IssueAccess(sub uuid.UUID, role model.Role) (model.Token, error)
	IssueRefresh(sub uuid.UUID, role model.Role) (model.Token, error)
	IssueReset(sub uuid.UUID, stamp string) (model.Token, error)

	VerifyRefresh(raw string) (model.Identity, error)
	VerifyReset(raw string) (model.ResetClaims, error)
}
