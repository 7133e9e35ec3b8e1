package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glyphworks/strata/internal/cache"
	"github.com/glyphworks/strata/internal/secrets"
)

func writeSchema(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

const empSchema = `
name: employees
description: employee roster
source:
  kind: sqlite
  dsn: /data/emp.db
`

func TestResolver_ParseAndCache(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "emp.yaml", empSchema)
	rc := cache.NewResourceCache(10)
	r := NewResolver(rc, nil, nil)

	s, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Name != "employees" || s.Source.Kind != "sqlite" {
		t.Fatalf("schema = %+v; want employees/sqlite", s)
	}

	// Second resolve hits the cache.
	if _, err := r.Resolve(path); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if hits := rc.Stats().Hits; hits != 1 {
		t.Fatalf("cache hits = %d; want 1", hits)
	}
}

func TestResolver_ReparsesAfterEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "emp.yaml", empSchema)
	rc := cache.NewResourceCache(10)
	r := NewResolver(rc, nil, nil)

	if _, err := r.Resolve(path); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Edit the file and push its mtime forward.
	writeSchema(t, dir, "emp.yaml", `
name: employees_v2
source:
  kind: sqlite
  dsn: /data/emp2.db
`)
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve after edit: %v", err)
	}
	if s.Name != "employees_v2" {
		t.Fatalf("name = %q; want employees_v2 (stale parse served)", s.Name)
	}
	if inv := rc.Stats().Invalidations; inv != 1 {
		t.Fatalf("invalidations = %d; want 1", inv)
	}
}

func TestResolver_ValidationErrors(t *testing.T) {
	dir := t.TempDir()
	rc := cache.NewResourceCache(10)
	r := NewResolver(rc, nil, nil)

	noName := writeSchema(t, dir, "bad1.yaml", "source:\n  kind: sqlite\n")
	if _, err := r.Resolve(noName); err == nil {
		t.Fatal("expected error for schema without name")
	}

	noKind := writeSchema(t, dir, "bad2.yaml", "name: x\nsource:\n  dsn: y\n")
	if _, err := r.Resolve(noKind); err == nil {
		t.Fatal("expected error for schema without source.kind")
	}
}

func TestResolver_ResolveAlias(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "emp.yaml", empSchema)
	r := NewResolver(cache.NewResourceCache(10), nil, []string{dir})

	s, origin, err := r.ResolveAlias("emp")
	if err != nil {
		t.Fatalf("ResolveAlias: %v", err)
	}
	if s.Name != "employees" {
		t.Fatalf("name = %q; want employees", s.Name)
	}
	if origin != filepath.Join(dir, "emp.yaml") {
		t.Fatalf("origin = %q; want path in search dir", origin)
	}

	if _, _, err := r.ResolveAlias("missing"); err == nil {
		t.Fatal("expected error for unknown alias")
	}
}

func TestResolver_CredentialInjection(t *testing.T) {
	dir := t.TempDir()
	enc, err := secrets.NewEphemeralEncryptor()
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}
	sm := secrets.NewManager(filepath.Join(dir, "secrets.age"), enc)
	if err := sm.Put("emp_dsn", []byte("hunter2")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	path := writeSchema(t, dir, "emp.yaml", `
name: employees
credential: emp_dsn
source:
  kind: sqlite
  dsn: "file:/data/emp.db?auth=${secret}"
`)
	rc := cache.NewResourceCache(10)
	r := NewResolver(rc, sm, nil)

	s, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "file:/data/emp.db?auth=hunter2"
	if s.Source.DSN != want {
		t.Fatalf("DSN = %q; want %q", s.Source.DSN, want)
	}

	// The cached copy keeps the placeholder.
	cached, _ := rc.Get(path)
	if cached.(*Schema).Source.DSN != "file:/data/emp.db?auth=${secret}" {
		t.Fatal("plaintext credential leaked into the cache")
	}
}

func TestResolver_CredentialWithoutStore(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "emp.yaml", `
name: employees
credential: emp_dsn
source:
  kind: sqlite
  dsn: "x=${secret}"
`)
	r := NewResolver(cache.NewResourceCache(10), nil, nil)
	if _, err := r.Resolve(path); err == nil {
		t.Fatal("expected error resolving credential without a secrets store")
	}
}

func TestResolver_Warm(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeSchema(t, dir, fmt.Sprintf("s%d.yaml", i), fmt.Sprintf(`
name: store%d
source:
  kind: memory
`, i)))
	}
	rc := cache.NewResourceCache(10)
	r := NewResolver(rc, nil, nil)

	if err := r.Warm(context.Background(), paths); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if rc.Len() != 5 {
		t.Fatalf("cached = %d; want 5", rc.Len())
	}

	// A broken file fails the warm pass.
	bad := writeSchema(t, dir, "bad.yaml", "source:\n  kind: memory\n")
	if err := r.Warm(context.Background(), []string{bad}); err == nil {
		t.Fatal("expected Warm to surface parse errors")
	}
}
