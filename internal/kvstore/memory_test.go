package kvstore

import (
	"context"
	"testing"
)

func TestMemoryStoreTypedValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.GetString(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetString(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := store.SetString(ctx, "s", "value"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	value, ok, err := store.GetString(ctx, "s")
	if err != nil || !ok || value != "value" {
		t.Fatalf("GetString() = %q ok=%v err=%v", value, ok, err)
	}

	if err := store.SetBool(ctx, "b", true); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	flag, ok, err := store.GetBool(ctx, "b")
	if err != nil || !ok || !flag {
		t.Fatalf("GetBool() = %v ok=%v err=%v", flag, ok, err)
	}

	if err := store.SetInt64(ctx, "i", -42); err != nil {
		t.Fatalf("SetInt64() error = %v", err)
	}
	number, ok, err := store.GetInt64(ctx, "i")
	if err != nil || !ok || number != -42 {
		t.Fatalf("GetInt64() = %d ok=%v err=%v", number, ok, err)
	}
}

func TestMemoryStoreTypeMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SetString(ctx, "s", "not a number"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if _, _, err := store.GetInt64(ctx, "s"); err == nil {
		t.Fatal("GetInt64() should fail for non-int value")
	}
	if _, _, err := store.GetBool(ctx, "s"); err == nil {
		t.Fatal("GetBool() should fail for non-bool value")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SetString(ctx, "a", "1"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if err := store.SetString(ctx, "b", "2"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}

	if err := store.Delete(ctx, "a", "b", "never-existed"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}

	// Deleting absent keys stays a no-op.
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
}

func TestNamespacedStoreIsolatesKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := NewMemoryStore()
	first := Namespaced(base, "install:one:")
	second := Namespaced(base, "install:two:")

	if err := first.SetInt64(ctx, "counter", 7); err != nil {
		t.Fatalf("SetInt64() error = %v", err)
	}

	if _, ok, err := second.GetInt64(ctx, "counter"); err != nil || ok {
		t.Fatalf("second namespace should not see first's key, ok=%v err=%v", ok, err)
	}

	value, ok, err := base.GetInt64(ctx, "install:one:counter")
	if err != nil || !ok || value != 7 {
		t.Fatalf("base key = %d ok=%v err=%v, want prefixed write", value, ok, err)
	}

	if err := first.Delete(ctx, "counter"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := first.GetInt64(ctx, "counter"); ok {
		t.Fatal("delete through namespace should remove the key")
	}
}

func TestNamespacedEmptyPrefixReturnsBase(t *testing.T) {
	t.Parallel()

	base := NewMemoryStore()
	if got := Namespaced(base, ""); got != Store(base) {
		t.Fatal("empty prefix should return the base store unchanged")
	}
}
