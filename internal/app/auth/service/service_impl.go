package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/hasher"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/jwt"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	repo "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/repo"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/notify"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/metrics"
	"go.uber.org/zap"
)

const outboxTimeout = 2 * time.Second

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.TokenPair, error)
	Login(context.Context, dto.LoginDTO) (model.TokenPair, error)
	RefreshAccess(context.Context, dto.RefreshDTO) (model.AccessGrant, error)
	RequestPasswordReset(context.Context, dto.ForgotPasswordDTO) error
	CompletePasswordReset(context.Context, dto.ResetPasswordDTO) error
	ChangePassword(context.Context, uuid.UUID, dto.ChangePasswordDTO) error
	Me(context.Context, uuid.UUID) (model.User, error)
}

type Settings struct {
	FrontendURL   string
	AdminEmail    string
	NotifyTimeout time.Duration
}

// Deps wires the service. Epochs and Outbox are optional: without Epochs
// refresh tokens are purely stateless, without Outbox no admin alert is sent.
type Deps struct {
	Users     repo.UserRepo
	Epochs    repo.TokenEpochRepo
	Tokens    jwt.TokenAuthority
	Hasher    hasher.CredentialHasher
	Mailer    notify.Notifier
	Outbox    notify.Queue
	Validator *validator.Validate
	Logger    *zap.Logger
	Settings  Settings
	Now       func() time.Time
}

type authService struct {
	users  repo.UserRepo
	epochs repo.TokenEpochRepo
	tokens jwt.TokenAuthority
	hasher hasher.CredentialHasher
	mailer notify.Notifier
	outbox notify.Queue
	v      *validator.Validate
	log    *zap.Logger
	set    Settings
	now    func() time.Time
}

func New(d Deps) Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Settings.NotifyTimeout <= 0 {
		d.Settings.NotifyTimeout = 5 * time.Second
	}
	return &authService{
		users:  d.Users,
		epochs: d.Epochs,
		tokens: d.Tokens,
		hasher: d.Hasher,
		mailer: d.Mailer,
		outbox: d.Outbox,
		v:      d.Validator,
		log:    d.Logger,
		set:    d.Settings,
		now:    d.Now,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (pair model.TokenPair, err error) {
	defer observe("register", &err)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}
	if !in.IsAcceptedTerms {
		return model.TokenPair{}, customErrors.NewInvalidArgument("terms of use must be accepted")
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return model.TokenPair{}, err
	}

	now := a.now().UTC()
	user := model.User{
		ID:              uuid.New(),
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    passwordHash,
		IsAcceptedTerms: true,
		IsActive:        true,
		Timezone:        nonEmpty(in.Timezone, "UTC"),
		Role:            model.DefaultRole,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}
	// uniqueness is the database's job; a concurrent duplicate loses here
	if _, err = a.users.CreateUser(ctx, user); err != nil {
		if customErrors.IsAlreadyExists(err) {
			return model.TokenPair{}, customErrors.ErrAlreadyExists
		}
		return model.TokenPair{}, repoErr(err, "Register")
	}

	pair, err = a.issuePair(user.ID, user.Role)
	if err != nil {
		return model.TokenPair{}, err
	}

	a.alertAdmins(ctx, user)
	return pair, nil
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (pair model.TokenPair, err error) {
	defer observe("login", &err)

	in.Email = normalizeEmail(in.Email)
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		a.hasher.DummyVerify(in.Password)
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.TokenPair{}, repoErr(err, "Login")
	}

	ok, err := a.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		a.log.Error("stored password hash is unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
		return model.TokenPair{}, customErrors.ErrMalformedHash
	}
	if !ok || !user.IsActive {
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	pair, err = a.issuePair(user.ID, user.Role)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := a.users.UpdateLastLogin(ctx, user.ID, a.now().UTC()); err != nil {
		a.log.Warn("last login not recorded", zap.String("user_id", user.ID.String()), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("last_login").Inc()
	}
	return pair, nil
}

func (a *authService) RefreshAccess(ctx context.Context, in dto.RefreshDTO) (grant model.AccessGrant, err error) {
	defer observe("refresh", &err)

	if err := a.v.Struct(in); err != nil {
		return model.AccessGrant{}, customErrors.ErrTokenMalformed
	}

	id, err := a.tokens.VerifyRefresh(in.RefreshToken)
	if err != nil {
		return model.AccessGrant{}, err
	}

	if a.epochs != nil {
		nbf, ok, err := a.epochs.NotBefore(ctx, id.UserID)
		if err != nil {
			return model.AccessGrant{}, customErrors.WrapDatabase(err, "token epoch")
		}
		if ok && id.IssuedAt.Before(nbf) {
			return model.AccessGrant{}, customErrors.ErrTokenRevoked
		}
	}

	access, err := a.tokens.IssueAccess(id.UserID, id.Role)
	if err != nil {
		return model.AccessGrant{}, err
	}
	return model.AccessGrant{
		AccessToken: access.Value,
		AccessTTL:   access.TTL(a.now()),
		UserID:      id.UserID,
		Role:        id.Role,
	}, nil
}

func (a *authService) RequestPasswordReset(ctx context.Context, in dto.ForgotPasswordDTO) (err error) {
	defer observe("request_reset", &err)

	in.Email = normalizeEmail(in.Email)
	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.ErrInvalidCredentials
	case err != nil:
		return repoErr(err, "RequestPasswordReset")
	}
	if !user.IsActive {
		return customErrors.ErrInvalidCredentials
	}

	token, err := a.tokens.IssueReset(user.ID, hasher.Stamp(user.PasswordHash))
	if err != nil {
		return err
	}

	msg := notify.PasswordResetMessage(user.Email, a.set.FrontendURL, token.Value, token.TTL(a.now()))
	if err := notify.SendWithTimeout(ctx, a.mailer, msg, a.set.NotifyTimeout); err != nil {
		a.log.Warn("reset mail not sent", zap.String("user_id", user.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (a *authService) CompletePasswordReset(ctx context.Context, in dto.ResetPasswordDTO) (err error) {
	defer observe("complete_reset", &err)

	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	claims, err := a.tokens.VerifyReset(in.Token)
	if err != nil {
		return err
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.ErrTokenInvalid
	case err != nil:
		return repoErr(err, "CompletePasswordReset")
	}

	// the stamp changes with the hash, so a used token stops matching
	if subtle.ConstantTimeCompare([]byte(hasher.Stamp(user.PasswordHash)), []byte(claims.Stamp)) != 1 {
		return customErrors.ErrTokenRevoked
	}

	if err := a.replacePassword(ctx, user.ID, in.NewPassword, "CompletePasswordReset"); err != nil {
		if customErrors.IsNotFound(err) {
			return customErrors.ErrTokenInvalid
		}
		return err
	}
	return nil
}

func (a *authService) ChangePassword(ctx context.Context, userID uuid.UUID, in dto.ChangePasswordDTO) (err error) {
	defer observe("change_password", &err)

	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.users.GetUserByID(ctx, userID)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.ErrUnauthorized
	case err != nil:
		return repoErr(err, "ChangePassword")
	}

	ok, err := a.hasher.Verify(in.CurrentPassword, user.PasswordHash)
	if err != nil {
		a.log.Error("stored password hash is unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
		return customErrors.ErrMalformedHash
	}
	if !ok {
		return customErrors.ErrInvalidCredentials
	}

	return a.replacePassword(ctx, user.ID, in.NewPassword, "ChangePassword")
}

func (a *authService) Me(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.users.GetUserByID(ctx, userID)
	switch {
	case customErrors.IsNotFound(err):
		return model.User{}, customErrors.ErrNotFound
	case err != nil:
		return model.User{}, repoErr(err, "Me")
	}
	return user, nil
}

func (a *authService) replacePassword(ctx context.Context, userID uuid.UUID, plain, op string) error {
	passwordHash, err := a.hasher.Hash(plain)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if customErrors.IsNotFound(err) {
			return err
		}
		return repoErr(err, op)
	}
	a.revokeRefreshTokens(ctx, userID)
	return nil
}

// revokeRefreshTokens moves the user's epoch forward so refresh tokens
// minted before the password change stop working.
func (a *authService) revokeRefreshTokens(ctx context.Context, userID uuid.UUID) {
	if a.epochs == nil {
		return
	}
	if err := a.epochs.Bump(ctx, userID, a.now()); err != nil {
		a.log.Warn("refresh tokens not revoked", zap.String("user_id", userID.String()), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("token_epoch").Inc()
	}
}

func (a *authService) alertAdmins(ctx context.Context, user model.User) {
	if a.outbox == nil || a.set.AdminEmail == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outboxTimeout)
	defer cancel()

	msg := notify.NewUserAlertMessage(a.set.AdminEmail, user.Username, user.Email)
	if err := a.outbox.Enqueue(ctx, msg); err != nil {
		a.log.Warn("admin alert not queued", zap.String("user_id", user.ID.String()), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("admin_alert").Inc()
	}
}

func (a *authService) issuePair(userID uuid.UUID, role model.Role) (model.TokenPair, error) {
	access, err := a.tokens.IssueAccess(userID, role)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := a.tokens.IssueRefresh(userID, role)
	if err != nil {
		return model.TokenPair{}, err
	}

	now := a.now()
	return model.TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		AccessTTL:    access.TTL(now),
		RefreshTTL:   refresh.TTL(now),
		UserID:       userID,
		Role:         role,
	}, nil
}

// repoErr keeps classified persistence errors and files anything else under
// ErrDatabase so raw driver errors never leave the service.
func repoErr(err error, op string) error {
	if customErrors.IsDatabase(err) || customErrors.IsInternal(err) {
		return err
	}
	return customErrors.WrapDatabase(err, op)
}

func observe(op string, err *error) {
	metrics.AuthAttempts.WithLabelValues(op, metrics.Outcome(*err)).Inc()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailFingerprint lets handlers log who called without logging the address.
func EmailFingerprint(email string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalizeEmail(email))))[:16]
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
