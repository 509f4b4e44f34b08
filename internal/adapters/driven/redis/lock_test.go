package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLock_OwnerIDUnique(t *testing.T) {
	_, client := setupTestRedis(t)

	a := NewLock(client, "")
	b := NewLock(client, "")
	if a.OwnerID() == b.OwnerID() {
		t.Errorf("expected unique owner IDs, got %s twice", a.OwnerID())
	}
}

func TestLock_KeyNamespace(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	if ok, err := NewLock(client, "").Acquire(ctx, "job", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("sercha:connect:lock:job") {
		t.Error("expected lock key under default namespace")
	}

	if ok, err := NewLock(client, "tenant-a").Acquire(ctx, "job", time.Minute); err != nil || !ok {
		t.Fatalf("acquire in other namespace: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("tenant-a:lock:job") {
		t.Error("expected lock key under custom namespace")
	}
}

func TestLock_AcquireHeld(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewLock(client, "")
	b := NewLock(client, "")

	ok, err := a.Acquire(ctx, "job", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = b.Acquire(ctx, "job", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second instance to be refused")
	}

	ok, _ = a.Acquire(ctx, "job", 10*time.Second)
	if ok {
		t.Error("expected lock not to be reentrant")
	}
}

func TestLock_Release(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewLock(client, "")
	b := NewLock(client, "")

	if err := a.Release(ctx, "job"); err != nil {
		t.Errorf("release of unheld lock: %v", err)
	}

	if ok, _ := a.Acquire(ctx, "job", 10*time.Second); !ok {
		t.Fatal("expected to acquire")
	}

	// b does not hold it, so this is a no-op
	if err := b.Release(ctx, "job"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := b.Acquire(ctx, "job", 10*time.Second); ok {
		t.Fatal("expected lock still held by a")
	}

	if err := a.Release(ctx, "job"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := b.Acquire(ctx, "job", 10*time.Second); !ok {
		t.Error("expected b to acquire after release")
	}
}

func TestLock_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewLock(client, "")
	b := NewLock(client, "")

	if ok, _ := a.Acquire(ctx, "job", 5*time.Second); !ok {
		t.Fatal("expected to acquire")
	}
	mr.FastForward(6 * time.Second)

	if ok, _ := b.Acquire(ctx, "job", 5*time.Second); !ok {
		t.Error("expected expired lock to be free")
	}
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewLock(client, "")
	b := NewLock(client, "")

	if ok, _ := a.Acquire(ctx, "job", 5*time.Second); !ok {
		t.Fatal("expected to acquire")
	}
	if err := a.Extend(ctx, "job", time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ttl := mr.TTL("sercha:connect:lock:job"); ttl != time.Minute {
		t.Errorf("expected TTL 1m, got %v", ttl)
	}

	if err := b.Extend(ctx, "job", time.Minute); err == nil {
		t.Error("expected extend by non-holder to fail")
	}
}

func TestLock_Ping(t *testing.T) {
	_, client := setupTestRedis(t)

	if err := NewLock(client, "").Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
