package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	store, err := NewRedisStore(rdb)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	return store
}

func TestRedisStoreStringRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestRedisStore(t)

	if _, ok, err := store.GetString(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetString(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := store.SetString(ctx, "record", `{"count":1}`); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	value, ok, err := store.GetString(ctx, "record")
	if err != nil || !ok || value != `{"count":1}` {
		t.Fatalf("GetString() = %q ok=%v err=%v", value, ok, err)
	}
}

func TestRedisStoreBoolEncoding(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestRedisStore(t)

	if err := store.SetBool(ctx, "flag", true); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}

	// Stored as "1" so the value is inspectable with redis-cli.
	raw, ok, err := store.GetString(ctx, "flag")
	if err != nil || !ok || raw != "1" {
		t.Fatalf("raw bool = %q ok=%v err=%v, want \"1\"", raw, ok, err)
	}

	flag, ok, err := store.GetBool(ctx, "flag")
	if err != nil || !ok || !flag {
		t.Fatalf("GetBool() = %v ok=%v err=%v", flag, ok, err)
	}

	if err := store.SetString(ctx, "flag", "banana"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if _, _, err := store.GetBool(ctx, "flag"); err == nil {
		t.Fatal("GetBool() should fail for non-bool value")
	}
}

func TestRedisStoreInt64AndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestRedisStore(t)

	if err := store.SetInt64(ctx, "millis", 1_700_000_000_000); err != nil {
		t.Fatalf("SetInt64() error = %v", err)
	}
	value, ok, err := store.GetInt64(ctx, "millis")
	if err != nil || !ok || value != 1_700_000_000_000 {
		t.Fatalf("GetInt64() = %d ok=%v err=%v", value, ok, err)
	}

	if err := store.Delete(ctx, "millis", "missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.GetInt64(ctx, "millis"); ok {
		t.Fatal("value should be gone after delete")
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete() with no keys error = %v", err)
	}
}
