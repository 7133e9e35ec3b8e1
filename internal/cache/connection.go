package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glyphworks/strata/internal/backend"
)

// TxState tracks where a connection is in its transaction cycle.
// Transitions are monotonic within one run: None can begin, Active can
// commit or roll back, and the terminal states only leave via disconnect.
type TxState int

const (
	TxNone TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxNone:
		return "none"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// ConnectionRecord describes one cached connection. The handle is owned
// exclusively by the ConnectionCache; callers interact with it only through
// the cache's methods.
type ConnectionRecord struct {
	Key         string
	Kind        string
	ConnectedAt time.Time
	State       TxState

	conn backend.Conn
}

// ConnectionCache is the schema tier: live backend handles keyed by alias,
// each with at most one transaction. Begin/commit/rollback failures are
// surfaced to the caller; close failures during disconnect and clear are
// logged and swallowed so one bad handle never blocks cleanup of the rest.
type ConnectionCache struct {
	mu     sync.Mutex
	conns  map[string]*ConnectionRecord
	logger *slog.Logger
	stats  Stats
}

// NewConnectionCache creates an empty connection cache. A nil logger
// falls back to slog's default.
func NewConnectionCache(logger *slog.Logger) *ConnectionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionCache{
		conns:  make(map[string]*ConnectionRecord),
		logger: logger,
	}
}

// Get returns the live handle for key, if any.
func (c *ConnectionCache) Get(key string) (backend.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.conns[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return rec.conn, true
}

// Record returns a snapshot of the connection record for key.
func (c *ConnectionCache) Record(key string) (*ConnectionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.conns[key]
	if !ok {
		return nil, false
	}
	cp := *rec
	cp.conn = nil
	return &cp, true
}

// Set registers a handle under key. If a live handle already occupies the
// key it is disconnected first so it cannot leak; that close failing is
// logged, never raised.
func (c *ConnectionCache) Set(key, kind string, conn backend.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.conns[key]; ok {
		c.logger.Warn("replacing live connection without prior disconnect", "key", key, "kind", old.Kind)
		c.closeLocked(context.Background(), old)
	}

	c.conns[key] = &ConnectionRecord{
		Key:         key,
		Kind:        kind,
		ConnectedAt: time.Now(),
		State:       TxNone,
		conn:        conn,
	}
}

// BeginTx opens a transaction on key's connection. Calling it again while
// the transaction is active is a no-op; calling it after commit or
// rollback in the same run is an error.
func (c *ConnectionCache) BeginTx(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.conns[key]
	if !ok {
		return fmt.Errorf("begin transaction %q: %w", key, backend.ErrNotFound)
	}
	switch rec.State {
	case TxActive:
		return nil
	case TxCommitted, TxRolledBack:
		return fmt.Errorf("begin transaction %q: transaction already %s", key, rec.State)
	}

	if err := rec.conn.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction %q: %w", key, err)
	}
	rec.State = TxActive
	return nil
}

// CommitTx commits key's active transaction.
func (c *ConnectionCache) CommitTx(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.conns[key]
	if !ok {
		return fmt.Errorf("commit transaction %q: %w", key, backend.ErrNotFound)
	}
	if rec.State != TxActive {
		return fmt.Errorf("commit transaction %q: transaction is %s, not active", key, rec.State)
	}

	if err := rec.conn.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction %q: %w", key, err)
	}
	rec.State = TxCommitted
	return nil
}

// RollbackTx rolls back key's active transaction.
func (c *ConnectionCache) RollbackTx(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.conns[key]
	if !ok {
		return fmt.Errorf("rollback transaction %q: %w", key, backend.ErrNotFound)
	}
	if rec.State != TxActive {
		return fmt.Errorf("rollback transaction %q: transaction is %s, not active", key, rec.State)
	}

	if err := rec.conn.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback transaction %q: %w", key, err)
	}
	rec.State = TxRolledBack
	return nil
}

// Disconnect closes key's handle unconditionally and removes the mapping.
// An active transaction is rolled back first. Backend failures are logged,
// never raised.
func (c *ConnectionCache) Disconnect(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.conns[key]
	if !ok {
		return
	}
	c.closeLocked(ctx, rec)
	delete(c.conns, key)
}

// Clear disconnects every key. Individual close failures are logged and
// tolerated so one bad handle cannot block release of the others.
func (c *ConnectionCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.conns))
	for key := range c.conns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		c.closeLocked(ctx, c.conns[key])
		delete(c.conns, key)
	}
	c.stats = Stats{}
}

// Keys lists the live connection keys, sorted.
func (c *ConnectionCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.conns))
	for key := range c.conns {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live connections.
func (c *ConnectionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// Stats returns a snapshot of the tier's counters.
func (c *ConnectionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.conns)
	return s
}

// closeLocked rolls back any active transaction and closes the handle,
// logging failures instead of raising them.
func (c *ConnectionCache) closeLocked(ctx context.Context, rec *ConnectionRecord) {
	if rec.State == TxActive {
		if err := rec.conn.Rollback(ctx); err != nil {
			c.logger.Warn("rollback during disconnect failed", "key", rec.Key, "error", err)
		}
		rec.State = TxRolledBack
	}
	if err := rec.conn.Close(); err != nil {
		c.logger.Warn("connection close failed", "key", rec.Key, "kind", rec.Kind, "error", err)
	}
}
