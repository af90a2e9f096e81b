package jwt

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	jwt2 "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/jwt"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/config"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testOptions(c *clock) Options {
	return Options{
		Issuer:     "vinylkeeper-test",
		Audience:   "vinylkeeper",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ResetTTL:   15 * time.Minute,
		Leeway:     30 * time.Second,
		Now:        c.Now,
	}
}

func newAuthority(t *testing.T, c *clock) *TokenAuthority {
	t.Helper()
	keys, err := LoadKeyMaterial("testdata/priv.pem", "testdata/pub.pem")
	require.NoError(t, err)
	return New(keys, testOptions(c))
}

func newClock() *clock {
	return &clock{t: time.Now().Truncate(time.Second)}
}

func signWith(t *testing.T, keyPath string, claims jwt.Claims) string {
	t.Helper()
	pemBytes, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	require.NoError(t, err)
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func registered(c *clock, sub string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.Now()
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "vinylkeeper-test",
		Audience:  jwt.ClaimStrings{"vinylkeeper"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func TestTokenAuthority_AccessRoundTrip(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	uid := uuid.New()

	tok, err := ta.IssueAccess(uid, model.RoleSuperUser)
	require.NoError(t, err)
	require.NotEmpty(t, tok.ID)
	require.True(t, c.Now().Add(15*time.Minute).Equal(tok.ExpiresAt))

	id, err := ta.VerifyAccess(tok.Value)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
	require.Equal(t, model.RoleSuperUser, id.Role)
	require.True(t, c.Now().Equal(id.IssuedAt))
}

func TestTokenAuthority_RefreshRoundTrip(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	uid := uuid.New()

	tok, err := ta.IssueRefresh(uid, model.RoleAdmin)
	require.NoError(t, err)

	id, err := ta.VerifyRefresh(tok.Value)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
	require.Equal(t, model.RoleAdmin, id.Role)
}

func TestTokenAuthority_ResetRoundTrip(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	uid := uuid.New()

	tok, err := ta.IssueReset(uid, "stamp")
	require.NoError(t, err)

	rc, err := ta.VerifyReset(tok.Value)
	require.NoError(t, err)
	require.Equal(t, uid, rc.UserID)
	require.Equal(t, "stamp", rc.Stamp)
	require.True(t, tok.ExpiresAt.Equal(rc.ExpiresAt))
}

func TestTokenAuthority_KindConfusionRejected(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	uid := uuid.New()

	access, err := ta.IssueAccess(uid, model.RoleUser)
	require.NoError(t, err)
	refresh, err := ta.IssueRefresh(uid, model.RoleUser)
	require.NoError(t, err)
	reset, err := ta.IssueReset(uid, "stamp")
	require.NoError(t, err)

	_, err = ta.VerifyAccess(reset.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
	_, err = ta.VerifyRefresh(reset.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)

	_, err = ta.VerifyAccess(refresh.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
	_, err = ta.VerifyReset(refresh.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)

	_, err = ta.VerifyRefresh(access.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
	_, err = ta.VerifyReset(access.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_ResetWithRoleRejected(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)

	raw := signWith(t, "testdata/priv.pem", resetEnvelope{
		ResetClaims: jwt2.ResetClaims{
			RegisteredClaims: registered(c, uuid.NewString(), time.Minute),
			TokenType:        jwt2.KindReset,
			Stamp:            "stamp",
		},
		Role: "admin",
	})

	_, err := ta.VerifyReset(raw)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_Expired(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	uid := uuid.New()

	access, err := ta.IssueAccess(uid, model.RoleUser)
	require.NoError(t, err)
	reset, err := ta.IssueReset(uid, "stamp")
	require.NoError(t, err)

	// within leeway
	c.Advance(15*time.Minute + 10*time.Second)
	_, err = ta.VerifyAccess(access.Value)
	require.NoError(t, err)

	c.Advance(time.Minute)
	_, err = ta.VerifyAccess(access.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenExpired)
	require.True(t, customErrors.IsInvalidToken(err))

	_, err = ta.VerifyReset(reset.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenExpired)
}

func TestTokenAuthority_Malformed(t *testing.T) {
	ta := newAuthority(t, newClock())

	for _, raw := range []string{"", "bad", "a.b.c", "!!!.@@@.###"} {
		_, err := ta.VerifyAccess(raw)
		require.ErrorIs(t, err, customErrors.ErrTokenMalformed, "raw %q", raw)
	}
}

func TestTokenAuthority_ForeignSignature(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)

	raw := signWith(t, "testdata/other_priv.pem", jwt2.AccessClaims{
		RegisteredClaims: registered(c, uuid.NewString(), time.Minute),
		Role:             "admin",
		TokenType:        jwt2.KindAccess,
	})

	_, err := ta.VerifyAccess(raw)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_HMACRejected(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt2.AccessClaims{
		RegisteredClaims: registered(c, uuid.NewString(), time.Minute),
		Role:             "admin",
		TokenType:        jwt2.KindAccess,
	}).SignedString([]byte("x"))
	require.NoError(t, err)

	_, err = ta.VerifyAccess(raw)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_IssuerAndAudience(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)
	keys, err := LoadKeyMaterial("testdata/priv.pem", "testdata/pub.pem")
	require.NoError(t, err)

	wrongIss := testOptions(c)
	wrongIss.Issuer = "someone-else"
	tok, err := New(keys, wrongIss).IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)
	_, err = ta.VerifyAccess(tok.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)

	wrongAud := testOptions(c)
	wrongAud.Audience = "other-app"
	tok, err = New(keys, wrongAud).IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)
	_, err = ta.VerifyAccess(tok.Value)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_UnknownRoleClaim(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)

	raw := signWith(t, "testdata/priv.pem", jwt2.AccessClaims{
		RegisteredClaims: registered(c, uuid.NewString(), time.Minute),
		Role:             "root",
		TokenType:        jwt2.KindAccess,
	})

	_, err := ta.VerifyAccess(raw)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_IssuedInFuture(t *testing.T) {
	c := newClock()
	ta := newAuthority(t, c)

	future := &clock{t: c.Now().Add(time.Hour)}
	raw := signWith(t, "testdata/priv.pem", jwt2.AccessClaims{
		RegisteredClaims: registered(future, uuid.NewString(), time.Minute),
		Role:             "user",
		TokenType:        jwt2.KindAccess,
	})

	_, err := ta.VerifyAccess(raw)
	require.ErrorIs(t, err, customErrors.ErrTokenInvalid)
}

func TestTokenAuthority_InvalidRoleNotIssued(t *testing.T) {
	ta := newAuthority(t, newClock())
	_, err := ta.IssueAccess(uuid.New(), model.Role(99))
	require.True(t, customErrors.IsInternal(err))
}

func TestTokenAuthority_VerifyOnly(t *testing.T) {
	c := newClock()
	signer := newAuthority(t, c)

	pub, err := os.ReadFile("testdata/pub.pem")
	require.NoError(t, err)
	keys, err := ParsePublicKeyMaterial(pub)
	require.NoError(t, err)
	require.False(t, keys.CanSign())
	verifier := New(keys, testOptions(c))

	tok, err := signer.IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)
	_, err = verifier.VerifyAccess(tok.Value)
	require.NoError(t, err)

	_, err = verifier.IssueAccess(uuid.New(), model.RoleUser)
	require.True(t, customErrors.IsInternal(err))
}

func TestKeyMaterial_Mismatch(t *testing.T) {
	priv, err := os.ReadFile("testdata/priv.pem")
	require.NoError(t, err)
	otherPub, err := os.ReadFile("testdata/other_pub.pem")
	require.NoError(t, err)

	_, err = ParseKeyMaterial(priv, otherPub)
	require.True(t, customErrors.IsInternal(err))

	_, err = LoadKeyMaterial("testdata/missing.pem", "testdata/pub.pem")
	require.True(t, customErrors.IsInternal(err))
}

func TestNewFromConfig(t *testing.T) {
	ta, err := NewFromConfig(&config.Config{
		JWTPrivateKeyPath: "testdata/priv.pem",
		JWTPublicKeyPath:  "testdata/pub.pem",
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   time.Hour,
		ResetTokenTTL:     time.Minute,
		Issuer:            "test",
		Audience:          "test",
	})
	require.NoError(t, err)

	uid := uuid.New()
	tok, err := ta.IssueRefresh(uid, model.RoleUser)
	require.NoError(t, err)
	id, err := ta.VerifyRefresh(tok.Value)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
}

func TestTokenAuthority_ConcurrentUse(t *testing.T) {
	ta := newAuthority(t, newClock())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid := uuid.New()
			tok, err := ta.IssueAccess(uid, model.RoleUser)
			if err != nil {
				errs <- err
				return
			}
			if _, err := ta.VerifyAccess(tok.Value); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
