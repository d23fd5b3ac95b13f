package solmate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAuthStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "authstore.json")
	store := NewAuthStore(path)

	if _, ok := store.Get("S1"); ok {
		t.Fatalf("expected empty store to miss")
	}

	if err := store.Put("S1", "sig-1"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("S2", "sig-2"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if got, ok := store.Get("S1"); !ok || got != "sig-1" {
		t.Fatalf("Get S1 = %q, %v; want sig-1, true", got, ok)
	}

	// a fresh instance reads the same file
	again := NewAuthStore(path)
	if got, ok := again.Get("S2"); !ok || got != "sig-2" {
		t.Fatalf("Get S2 from fresh store = %q, %v; want sig-2, true", got, ok)
	}

	if err := store.Delete("S1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get("S1"); ok {
		t.Fatalf("expected S1 gone after Delete")
	}
	if _, ok := store.Get("S2"); !ok {
		t.Fatalf("expected S2 to survive the delete of S1")
	}
}

func TestAuthStoreFilePermissions(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "authstore.json")
	store := NewAuthStore(path)
	if err := store.Put("S1", "sig"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected file mode 0600, got %o", perm)
	}
}

func TestAuthStoreCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "authstore.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	store := NewAuthStore(path)
	if _, ok := store.Get("S1"); ok {
		t.Fatalf("expected miss on corrupt store")
	}
	if err := store.Put("S1", "sig"); err == nil {
		t.Fatalf("expected Put to surface the decode error")
	}
}
