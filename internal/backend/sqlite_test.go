package backend

import (
	"context"
	"path/filepath"
	"testing"
)

func openSQLite(t *testing.T) Conn {
	t.Helper()
	src := Source{Kind: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}
	conn, err := NewSQLiteAdapter().Open(context.Background(), src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSQLite_ExecQuery(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)

	if _, err := conn.Exec(ctx, "CREATE TABLE people (name TEXT, age INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	n, err := conn.Exec(ctx, "INSERT INTO people (name, age) VALUES (?, ?)", "ada", 36)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d; want 1", n)
	}

	rows, err := conn.Query(ctx, "SELECT name, age FROM people")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "ada" {
		t.Fatalf("rows = %v; want one row with name=ada", rows)
	}
}

func TestSQLite_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)

	if _, err := conn.Exec(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := conn.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := conn.Exec(ctx, "INSERT INTO t (id) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := conn.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	rows, err := conn.Query(ctx, "SELECT id FROM t")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows after rollback = %d; want 0", len(rows))
	}
}

func TestSQLite_TxStateErrors(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)

	if err := conn.Commit(ctx); err != ErrNoTransaction {
		t.Fatalf("Commit without tx = %v; want ErrNoTransaction", err)
	}
	if err := conn.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := conn.Begin(ctx); err != ErrTxActive {
		t.Fatalf("second Begin = %v; want ErrTxActive", err)
	}
	if err := conn.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
}

func TestRegistry_LookupAndOpen(t *testing.T) {
	r := NewDefaultRegistry()

	want := []string{"csvfile", "memory", "sqlite"}
	got := r.Kinds()
	if len(got) != len(want) {
		t.Fatalf("Kinds = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Kinds = %v; want %v", got, want)
		}
	}

	if _, err := r.Lookup("oracle"); err == nil {
		t.Fatal("expected error for unregistered kind")
	}

	conn, err := r.Open(context.Background(), Source{Kind: "memory"})
	if err != nil {
		t.Fatalf("Open via registry: %v", err)
	}
	conn.Close()
}
