package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRepo(t *testing.T) (*miniredis.Miniredis, *RedisTokenRepo) {
	mr, client := newClient(t)
	return mr, NewRedisTokenRepo(client, time.Hour)
}

func TestRedisTokenRepo_NotBefore_KeyAbsent(t *testing.T) {
	_, repo := newRepo(t)

	_, ok, err := repo.NotBefore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("NotBefore err: %v", err)
	}
	if ok {
		t.Fatal("absent key must report no epoch")
	}
}

func TestRedisTokenRepo_BumpAndNotBefore(t *testing.T) {
	_, repo := newRepo(t)
	ctx := context.Background()
	uid := uuid.New()

	at := time.Now().Add(1500 * time.Millisecond)
	if err := repo.Bump(ctx, uid, at); err != nil {
		t.Fatalf("Bump: %v", err)
	}

	nbf, ok, err := repo.NotBefore(ctx, uid)
	if err != nil || !ok {
		t.Fatalf("NotBefore ok=%v err=%v", ok, err)
	}
	if nbf.Unix() != at.Unix() {
		t.Fatalf("want %d got %d", at.Unix(), nbf.Unix())
	}

	if _, ok, _ := repo.NotBefore(ctx, uuid.New()); ok {
		t.Fatal("epoch must be per user")
	}
}

func TestRedisTokenRepo_EpochExpires(t *testing.T) {
	mr, repo := newRepo(t)
	ctx := context.Background()
	uid := uuid.New()

	if err := repo.Bump(ctx, uid, time.Now()); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	if _, ok, _ := repo.NotBefore(ctx, uid); ok {
		t.Fatal("epoch must expire together with the refresh ttl")
	}
}

func TestRedisTokenRepo_GarbageValue(t *testing.T) {
	mr, repo := newRepo(t)
	uid := uuid.New()
	if err := mr.Set(epochPrefix+uid.String(), "not-a-number"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := repo.NotBefore(context.Background(), uid); err == nil {
		t.Fatal("garbage value must surface an error")
	}
}
