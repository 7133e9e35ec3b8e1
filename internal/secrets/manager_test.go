package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	enc, err := NewEphemeralEncryptor()
	if err != nil {
		t.Fatalf("NewEphemeralEncryptor: %v", err)
	}
	path := filepath.Join(t.TempDir(), "secrets.age")
	return NewManager(path, enc), path
}

func TestManager_PutGetRoundTrip(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Put("db_password", []byte("s3cret-value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.Get("db_password")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "s3cret-value" {
		t.Fatalf("Get = %q; want s3cret-value", got)
	}

	// The on-disk file must not contain the plaintext.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if bytes.Contains(data, []byte("s3cret-value")) {
		t.Fatal("plaintext leaked into the store file")
	}
}

func TestManager_GetMissing(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v; want ErrNotFound", err)
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	m, _ := newTestManager(t)
	for _, k := range []string{"beta", "alpha"} {
		if err := m.Put(k, []byte("v")); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	keys, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Fatalf("List = %v; want [alpha beta]", keys)
	}

	if err := m.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get("alpha"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v; want ErrNotFound", err)
	}
	if err := m.Delete("alpha"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double Delete = %v; want ErrNotFound", err)
	}
}

func TestEnsureKeyFile_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "strata.age")

	enc1, err := EnsureKeyFile(path)
	if err != nil {
		t.Fatalf("EnsureKeyFile: %v", err)
	}
	ct, err := enc1.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// A second load of the same file must decrypt what the first sealed.
	enc2, err := EnsureKeyFile(path)
	if err != nil {
		t.Fatalf("EnsureKeyFile reload: %v", err)
	}
	pt, err := enc2.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("Decrypt = %q; want hello", pt)
	}
}
