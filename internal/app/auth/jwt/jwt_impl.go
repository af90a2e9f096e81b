package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	jwt2 "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/jwt"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/config"
)

type Options struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Leeway     time.Duration
	Now        func() time.Time
}

type TokenAuthority struct {
	keys       *KeyMaterial
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	leeway     time.Duration
	issuer     string
	audience   string
	now        func() time.Time
}

var _ jwt2.TokenAuthority = (*TokenAuthority)(nil)

func New(keys *KeyMaterial, opts Options) *TokenAuthority {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenAuthority{
		keys:       keys,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		resetTTL:   opts.ResetTTL,
		leeway:     opts.Leeway,
		issuer:     opts.Issuer,
		audience:   opts.Audience,
		now:        opts.Now,
	}
}

func NewFromConfig(cfg *config.Config) (*TokenAuthority, error) {
	keys, err := LoadKeyMaterial(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, err
	}
	return New(keys, Options{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		ResetTTL:   cfg.ResetTokenTTL,
		Leeway:     cfg.TokenLeeway,
	}), nil
}

func (j *TokenAuthority) registered(sub uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := j.now()
	rc := jwt.RegisteredClaims{
		Subject:   sub.String(),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if j.audience != "" {
		rc.Audience = jwt.ClaimStrings{j.audience}
	}
	return rc
}

func (j *TokenAuthority) sign(claims jwt.Claims, rc jwt.RegisteredClaims, what string) (model.Token, error) {
	if !j.keys.CanSign() {
		return model.Token{}, customErrors.WrapInternal(errors.New("no private key loaded"), what)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.keys.private)
	if err != nil {
		return model.Token{}, customErrors.WrapInternal(err, what)
	}
	return model.Token{Value: signed, ExpiresAt: rc.ExpiresAt.Time, ID: rc.ID}, nil
}

func (j *TokenAuthority) IssueAccess(sub uuid.UUID, role model.Role) (model.Token, error) {
	if !role.Valid() {
		return model.Token{}, customErrors.WrapInternal(customErrors.ErrInvalidRole, "sign access token")
	}
	rc := j.registered(sub, j.accessTTL)
	return j.sign(jwt2.AccessClaims{
		RegisteredClaims: rc,
		Role:             role.String(),
		TokenType:        jwt2.KindAccess,
	}, rc, "sign access token")
}

func (j *TokenAuthority) IssueRefresh(sub uuid.UUID, role model.Role) (model.Token, error) {
	if !role.Valid() {
		return model.Token{}, customErrors.WrapInternal(customErrors.ErrInvalidRole, "sign refresh token")
	}
	rc := j.registered(sub, j.refreshTTL)
	return j.sign(jwt2.RefreshClaims{
		RegisteredClaims: rc,
		Role:             role.String(),
		TokenType:        jwt2.KindRefresh,
	}, rc, "sign refresh token")
}

func (j *TokenAuthority) IssueReset(sub uuid.UUID, stamp string) (model.Token, error) {
	rc := j.registered(sub, j.resetTTL)
	return j.sign(jwt2.ResetClaims{
		RegisteredClaims: rc,
		TokenType:        jwt2.KindReset,
		Stamp:            stamp,
	}, rc, "sign reset token")
}

func (j *TokenAuthority) VerifyAccess(raw string) (model.Identity, error) {
	var claims jwt2.AccessClaims
	if err := j.parse(raw, &claims); err != nil {
		return model.Identity{}, err
	}
	if claims.TokenType != jwt2.KindAccess {
		return model.Identity{}, customErrors.ErrTokenInvalid
	}
	return identity(claims.RegisteredClaims, claims.Role)
}

func (j *TokenAuthority) VerifyRefresh(raw string) (model.Identity, error) {
	var claims jwt2.RefreshClaims
	if err := j.parse(raw, &claims); err != nil {
		return model.Identity{}, err
	}
	if claims.TokenType != jwt2.KindRefresh {
		return model.Identity{}, customErrors.ErrTokenInvalid
	}
	return identity(claims.RegisteredClaims, claims.Role)
}

// resetEnvelope exposes a role claim so a reset verifier can refuse tokens
// that carry one.
type resetEnvelope struct {
	jwt2.ResetClaims
	Role string `json:"role,omitempty"`
}

func (j *TokenAuthority) VerifyReset(raw string) (model.ResetClaims, error) {
	var claims resetEnvelope
	if err := j.parse(raw, &claims); err != nil {
		return model.ResetClaims{}, err
	}
	if claims.TokenType != jwt2.KindReset || claims.Role != "" || claims.Stamp == "" {
		return model.ResetClaims{}, customErrors.ErrTokenInvalid
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.ResetClaims{}, customErrors.ErrTokenInvalid
	}
	return model.ResetClaims{
		UserID:    uid,
		Stamp:     claims.Stamp,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (j *TokenAuthority) parse(raw string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return j.keys.public, nil
	}, opts...)

	switch {
	case err == nil && token.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return customErrors.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return customErrors.ErrTokenExpired
	default:
		return customErrors.ErrTokenInvalid
	}
}

func identity(rc jwt.RegisteredClaims, rawRole string) (model.Identity, error) {
	uid, err := uuid.Parse(rc.Subject)
	if err != nil {
		return model.Identity{}, customErrors.ErrTokenInvalid
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.Identity{}, customErrors.ErrTokenInvalid
	}
	var iat time.Time
	if rc.IssuedAt != nil {
		iat = rc.IssuedAt.Time
	}
	return model.Identity{UserID: uid, Role: role, IssuedAt: iat}, nil
}
