package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/guard"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/jwt"
	colsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/collection/service"
	authErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/collection"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/validation"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type repoStub struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]collection.Collection
	writes int
}

func newRepo() *repoStub { return &repoStub{rows: make(map[uuid.UUID]collection.Collection)} }

func (r *repoStub) Create(_ context.Context, c collection.Collection) (collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
	r.writes++
	return c, nil
}

func (r *repoStub) FindByID(_ context.Context, id uuid.UUID) (collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return collection.Collection{}, authErrors.ErrNotFound
	}
	return c, nil
}

func (r *repoStub) ListByOwner(_ context.Context, owner uuid.UUID) ([]collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []collection.Collection
	for _, c := range r.rows {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *repoStub) ListPublic(_ context.Context, limit, offset int) ([]collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []collection.Collection
	for _, c := range r.rows {
		if c.IsPublic {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *repoStub) Update(_ context.Context, c collection.Collection) (collection.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[c.ID]
	if !ok || cur.OwnerID != c.OwnerID {
		return collection.Collection{}, authErrors.ErrNotFound
	}
	r.rows[c.ID] = c
	r.writes++
	return c, nil
}

func (r *repoStub) Delete(_ context.Context, id, owner uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[id]
	if !ok || cur.OwnerID != owner {
		return authErrors.ErrNotFound
	}
	delete(r.rows, id)
	r.writes++
	return nil
}

/* ───────────────────────────── helpers ───────────────────────────── */

type fixture struct {
	svc   colsvc.Service
	repo  *repoStub
	alice string
	bob   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := jwt.LoadKeyMaterial("../../auth/jwt/testdata/priv.pem", "../../auth/jwt/testdata/pub.pem")
	require.NoError(t, err)
	ta := jwt.New(keys, jwt.Options{AccessTTL: time.Minute, RefreshTTL: time.Hour, ResetTTL: time.Minute})

	alice, err := ta.IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)
	bob, err := ta.IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)

	repo := newRepo()
	return &fixture{
		svc:   colsvc.New(repo, guard.New(ta), validation.New(), nil),
		repo:  repo,
		alice: alice.Value,
		bob:   bob.Value,
	}
}

func ptr[T any](v T) *T { return &v }

/* ───────────────────────────── tests ───────────────────────────── */

func TestCreate_AssignsCallerAsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "  Jazz  ", Description: ptr("  ")})
	require.NoError(t, err)
	require.Equal(t, "Jazz", c.Name)
	require.Nil(t, c.Description)
	require.False(t, c.IsPublic)

	mine, err := f.svc.ListMine(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := f.svc.ListMine(ctx, f.bob)
	require.NoError(t, err)
	require.Empty(t, theirs)
}

func TestCreate_Boundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: strings.Repeat("é", collection.MaxNameLength)})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: strings.Repeat("a", collection.MaxNameLength+1)})
	require.ErrorIs(t, err, authErrors.ErrInvalidName)

	_, err = f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "   "})
	require.ErrorIs(t, err, authErrors.ErrInvalidName)
	require.True(t, authErrors.IsInvalidArgument(err))

	_, err = f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "ok", Description: ptr(strings.Repeat("d", collection.MaxDescriptionLength))})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "ok", Description: ptr(strings.Repeat("d", collection.MaxDescriptionLength+1))})
	require.ErrorIs(t, err, authErrors.ErrInvalidDescription)
}

func TestCreate_NeedsValidToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "", dto.CreateCollectionDTO{Name: "x"})
	require.ErrorIs(t, err, authErrors.ErrUnauthorized)
	_, err = f.svc.Create(context.Background(), "forged", dto.CreateCollectionDTO{Name: "x"})
	require.ErrorIs(t, err, authErrors.ErrUnauthorized)
	require.Zero(t, f.repo.writes)
}

func TestMutations_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "Soul", Description: ptr("70s")})
	require.NoError(t, err)
	writes := f.repo.writes

	_, err = f.svc.Update(ctx, f.bob, c.ID, dto.UpdateCollectionDTO{Name: ptr("Mine now")})
	require.ErrorIs(t, err, authErrors.ErrForbidden)
	_, err = f.svc.SwitchArea(ctx, f.bob, c.ID, dto.SwitchAreaDTO{IsPublic: ptr(true)})
	require.ErrorIs(t, err, authErrors.ErrForbidden)
	require.ErrorIs(t, f.svc.Delete(ctx, f.bob, c.ID), authErrors.ErrForbidden)
	require.Equal(t, writes, f.repo.writes)

	updated, err := f.svc.Update(ctx, f.alice, c.ID, dto.UpdateCollectionDTO{Name: ptr(" Northern Soul "), Description: ptr("")})
	require.NoError(t, err)
	require.Equal(t, "Northern Soul", updated.Name)
	require.Nil(t, updated.Description)

	switched, err := f.svc.SwitchArea(ctx, f.alice, c.ID, dto.SwitchAreaDTO{IsPublic: ptr(true)})
	require.NoError(t, err)
	require.True(t, switched.IsPublic)
	require.Equal(t, "Northern Soul", switched.Name)

	require.NoError(t, f.svc.Delete(ctx, f.alice, c.ID))
	_, err = f.svc.Get(ctx, f.alice, c.ID)
	require.ErrorIs(t, err, authErrors.ErrNotFound)
}

func TestUpdate_ValidatesBeforeLookup(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), "", uuid.New(), dto.UpdateCollectionDTO{Name: ptr(" ")})
	require.ErrorIs(t, err, authErrors.ErrInvalidName)

	_, err = f.svc.SwitchArea(context.Background(), f.alice, uuid.New(), dto.SwitchAreaDTO{})
	require.True(t, authErrors.IsInvalidArgument(err))

	_, err = f.svc.SwitchArea(context.Background(), f.alice, uuid.New(), dto.SwitchAreaDTO{IsPublic: ptr(false)})
	require.ErrorIs(t, err, authErrors.ErrNotFound)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "Secret"})
	require.NoError(t, err)
	public, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "Shared", IsPublic: true})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "", public.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, f.bob, public.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "", private.ID)
	require.ErrorIs(t, err, authErrors.ErrNotFound)
	_, err = f.svc.Get(ctx, f.bob, private.ID)
	require.ErrorIs(t, err, authErrors.ErrNotFound)
	got, err := f.svc.Get(ctx, f.alice, private.ID)
	require.NoError(t, err)
	require.Equal(t, "Secret", got.Name)

	list, err := f.svc.ListPublic(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, public.ID, list[0].ID)
}

type countingGuard struct {
	*guard.OwnershipGuard
	mutations int
}

func (g *countingGuard) AuthorizeMutation(ctx context.Context, token string, owner uuid.UUID) (model.Identity, error) {
	g.mutations++
	return g.OwnershipGuard.AuthorizeMutation(ctx, token, owner)
}

func TestMutations_GoThroughAuthorizeMutation(t *testing.T) {
	keys, err := jwt.LoadKeyMaterial("../../auth/jwt/testdata/priv.pem", "../../auth/jwt/testdata/pub.pem")
	require.NoError(t, err)
	ta := jwt.New(keys, jwt.Options{AccessTTL: time.Minute, RefreshTTL: time.Hour, ResetTTL: time.Minute})
	tok, err := ta.IssueAccess(uuid.New(), model.RoleUser)
	require.NoError(t, err)

	g := &countingGuard{OwnershipGuard: guard.New(ta)}
	repo := newRepo()
	svc := colsvc.New(repo, g, validation.New(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, tok.Value, dto.CreateCollectionDTO{Name: "Dub"})
	require.NoError(t, err)
	require.Zero(t, g.mutations)

	_, err = svc.Update(ctx, tok.Value, c.ID, dto.UpdateCollectionDTO{Name: ptr("Dub plates")})
	require.NoError(t, err)
	_, err = svc.SwitchArea(ctx, tok.Value, c.ID, dto.SwitchAreaDTO{IsPublic: ptr(true)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, tok.Value, c.ID))
	require.Equal(t, 3, g.mutations)
}

func TestMutations_WithoutTokenAreUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.alice, dto.CreateCollectionDTO{Name: "Funk"})
	require.NoError(t, err)
	writes := f.repo.writes

	_, err = f.svc.Update(ctx, "", c.ID, dto.UpdateCollectionDTO{Name: ptr("Gone")})
	require.ErrorIs(t, err, authErrors.ErrUnauthorized)
	require.ErrorIs(t, f.svc.Delete(ctx, "forged", c.ID), authErrors.ErrUnauthorized)
	require.Equal(t, writes, f.repo.writes)
}
