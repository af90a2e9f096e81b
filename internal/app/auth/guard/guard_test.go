package guard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/jwt"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
)

func newAuthority(t *testing.T) *jwt.TokenAuthority {
	t.Helper()
	keys, err := jwt.LoadKeyMaterial("../jwt/testdata/priv.pem", "../jwt/testdata/pub.pem")
	require.NoError(t, err)
	return jwt.New(keys, jwt.Options{
		Issuer:     "test",
		Audience:   "test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   time.Minute,
	})
}

func TestAuthorizeMutation_OwnerVsStranger(t *testing.T) {
	ta := newAuthority(t)
	g := New(ta)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	aliceTok, err := ta.IssueAccess(alice, model.RoleUser)
	require.NoError(t, err)
	bobTok, err := ta.IssueAccess(bob, model.RoleUser)
	require.NoError(t, err)

	id, err := g.AuthorizeMutation(ctx, aliceTok.Value, alice)
	require.NoError(t, err)
	require.Equal(t, alice, id.UserID)

	_, err = g.AuthorizeMutation(ctx, bobTok.Value, alice)
	require.ErrorIs(t, err, customErrors.ErrForbidden)
}

func TestResolve_Failures(t *testing.T) {
	ta := newAuthority(t)
	g := New(ta)
	ctx := context.Background()

	_, err := g.Resolve(ctx, "  ")
	require.ErrorIs(t, err, customErrors.ErrUnauthorized)

	_, err = g.Resolve(ctx, "garbage")
	require.ErrorIs(t, err, customErrors.ErrUnauthorized)
	require.ErrorIs(t, err, customErrors.ErrTokenMalformed)

	refresh, err := ta.IssueRefresh(uuid.New(), model.RoleUser)
	require.NoError(t, err)
	_, err = g.Resolve(ctx, refresh.Value)
	require.ErrorIs(t, err, customErrors.ErrUnauthorized)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)

	reset, err := ta.IssueReset(uuid.New(), "stamp")
	require.NoError(t, err)
	_, err = g.AuthorizeMutation(ctx, reset.Value, uuid.New())
	require.ErrorIs(t, err, customErrors.ErrUnauthorized)
}

func TestAuthorize_NilIdentity(t *testing.T) {
	g := New(nil)
	require.ErrorIs(t, g.Authorize(model.Identity{}, uuid.Nil), customErrors.ErrForbidden)
}
