package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, "sk-test", 0), mr
}

func TestRedisStoreSaveLoadClear(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if got, err := store.Load(ctx); err != nil || got != nil {
		t.Fatalf("empty store: expected (nil, nil), got (%v, %v)", got, err)
	}

	sess := &Session{
		Credential: "a.b.c",
		Identity:   Identity{ID: "user-1", DisplayName: "Alice"},
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got == nil || got.Credential != "a.b.c" || got.Identity.ID != "user-1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	present, err := store.MarkerPresent(ctx)
	if err != nil || !present {
		t.Fatalf("expected marker present after save, got (%v, %v)", present, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got, err := store.Load(ctx); err != nil || got != nil {
		t.Fatalf("after clear: expected (nil, nil), got (%v, %v)", got, err)
	}
	if present, _ := store.MarkerPresent(ctx); present {
		t.Fatal("marker must be gone after clear")
	}

	// Clearing twice is not an error.
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
}

func TestRedisStoreDetectsExternalWipe(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess := &Session{Credential: "a.b.c", Identity: Identity{ID: "u", DisplayName: "U"}}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Simulate an external agent wiping the session behind the store's back.
	mr.Del("sk-test:session")
	mr.Del("sk-test:marker")

	present, err := store.MarkerPresent(ctx)
	if err != nil {
		t.Fatalf("marker probe failed: %v", err)
	}
	if present {
		t.Fatal("marker must report absent after external wipe")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	mr.Close()

	if _, err := store.Load(ctx); err == nil {
		t.Fatal("expected load error against closed backend")
	}
	if _, err := store.MarkerPresent(ctx); err == nil {
		t.Fatal("expected marker probe error against closed backend")
	}
}
