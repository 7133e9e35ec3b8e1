// Package backend defines the capability surface strata requires from a
// backing store: open a handle, run statements through it, and drive
// transaction boundaries. The cache layer never looks past these interfaces.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound indicates the requested adapter or source does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoTransaction indicates commit/rollback was called with no open transaction.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrTxActive indicates begin was called while a transaction is already open.
	ErrTxActive = errors.New("transaction already active")

	// ErrClosed indicates the handle has been closed.
	ErrClosed = errors.New("connection closed")
)

// Row is a single result row keyed by column name.
type Row = map[string]any

// Conn is a live handle to one backing store. A Conn carries at most one
// transaction at a time; Begin while one is open returns ErrTxActive, and
// Commit/Rollback without one return ErrNoTransaction.
type Conn interface {
	// Exec runs a mutating statement and returns the number of affected rows.
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)

	// Query runs a read statement and returns the matching rows.
	Query(ctx context.Context, stmt string, args ...any) ([]Row, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Source describes where a backing store lives. Exactly one of DSN or Path
// is meaningful depending on the adapter kind.
type Source struct {
	Kind    string            `yaml:"kind"`
	DSN     string            `yaml:"dsn,omitempty"`
	Path    string            `yaml:"path,omitempty"`
	Options map[string]string `yaml:"options,omitempty"`
}

// Adapter opens connections to one kind of backing store.
type Adapter interface {
	Kind() string
	Open(ctx context.Context, src Source) (Conn, error)
}

// Registry maps adapter kinds to adapters. Construct one per process and
// pass it explicitly; there is no ambient default.
type Registry struct {
	mu       sync.Mutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// NewDefaultRegistry creates a registry with every built-in adapter registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSQLiteAdapter())
	r.Register(NewMemoryAdapter())
	r.Register(NewCSVAdapter())
	return r
}

// Register adds an adapter, replacing any prior adapter of the same kind.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Kind()] = a
}

// Lookup returns the adapter for kind.
func (r *Registry) Lookup(kind string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("backend kind %q: %w", kind, ErrNotFound)
	}
	return a, nil
}

// Open resolves the adapter for src.Kind and opens a connection through it.
func (r *Registry) Open(ctx context.Context, src Source) (Conn, error) {
	a, err := r.Lookup(src.Kind)
	if err != nil {
		return nil, err
	}
	return a.Open(ctx, src)
}

// Kinds lists the registered adapter kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
