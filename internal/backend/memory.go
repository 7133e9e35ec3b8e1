package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryAdapter opens ephemeral in-memory table stores. Each Open returns an
// independent store unless src.DSN names a shared one, in which case every
// connection with the same name sees the same tables.
type MemoryAdapter struct {
	mu     sync.Mutex
	shared map[string]*memStore
}

// NewMemoryAdapter creates the memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{shared: make(map[string]*memStore)}
}

// Kind returns "memory".
func (a *MemoryAdapter) Kind() string { return "memory" }

// Open returns a connection to an in-memory store.
func (a *MemoryAdapter) Open(ctx context.Context, src Source) (Conn, error) {
	if src.DSN == "" {
		return &memConn{store: newMemStore()}, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.shared[src.DSN]
	if !ok {
		st = newMemStore()
		a.shared[src.DSN] = st
	}
	return &memConn{store: st}, nil
}

type memStore struct {
	mu     sync.Mutex
	tables map[string][]Row
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string][]Row)}
}

// memConn interprets a minimal statement form: "<verb> <table>", where verb
// is one of insert, delete, or select. Insert takes the row as either a
// single Row argument or alternating column/value arguments. Begin snapshots
// every table; Rollback restores the snapshot; Commit discards it.
type memConn struct {
	store    *memStore
	snapshot map[string][]Row
	closed   bool
}

func (c *memConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	if c.closed {
		return 0, ErrClosed
	}
	verb, table, err := splitStmt(stmt)
	if err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	switch verb {
	case "insert":
		row, err := rowFromArgs(args)
		if err != nil {
			return 0, err
		}
		c.store.tables[table] = append(c.store.tables[table], row)
		return 1, nil
	case "delete":
		n := int64(len(c.store.tables[table]))
		delete(c.store.tables, table)
		return n, nil
	default:
		return 0, fmt.Errorf("memory backend: unknown verb %q", verb)
	}
}

func (c *memConn) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	if c.closed {
		return nil, ErrClosed
	}
	verb, table, err := splitStmt(stmt)
	if err != nil {
		return nil, err
	}
	if verb != "select" {
		return nil, fmt.Errorf("memory backend: %q is not a query verb", verb)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return copyRows(c.store.tables[table]), nil
}

func (c *memConn) Begin(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.snapshot != nil {
		return ErrTxActive
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	snap := make(map[string][]Row, len(c.store.tables))
	for name, rows := range c.store.tables {
		snap[name] = copyRows(rows)
	}
	c.snapshot = snap
	return nil
}

func (c *memConn) Commit(ctx context.Context) error {
	if c.snapshot == nil {
		return ErrNoTransaction
	}
	c.snapshot = nil
	return nil
}

func (c *memConn) Rollback(ctx context.Context) error {
	if c.snapshot == nil {
		return ErrNoTransaction
	}
	c.store.mu.Lock()
	c.store.tables = c.snapshot
	c.store.mu.Unlock()
	c.snapshot = nil
	return nil
}

func (c *memConn) Close() error {
	if c.snapshot != nil {
		_ = c.Rollback(context.Background())
	}
	c.closed = true
	return nil
}

func splitStmt(stmt string) (verb, table string, err error) {
	fields := strings.Fields(strings.TrimSpace(stmt))
	if len(fields) != 2 {
		return "", "", fmt.Errorf("memory backend: statement must be \"<verb> <table>\", got %q", stmt)
	}
	return strings.ToLower(fields[0]), fields[1], nil
}

func rowFromArgs(args []any) (Row, error) {
	if len(args) == 1 {
		if row, ok := args[0].(Row); ok {
			return copyRow(row), nil
		}
		if row, ok := args[0].(map[string]any); ok {
			return copyRow(row), nil
		}
	}
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("memory backend: insert args must be a row map or column/value pairs")
	}
	row := make(Row, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		col, ok := args[i].(string)
		if !ok {
			return nil, fmt.Errorf("memory backend: column name must be a string, got %T", args[i])
		}
		row[col] = args[i+1]
	}
	return row, nil
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = copyRow(r)
	}
	return out
}

func copyRow(r Row) Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
