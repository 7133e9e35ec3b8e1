package backend

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// CSVAdapter opens flat-file tables stored as CSV with a header row. The
// file itself is the table; the table name in statements is accepted but
// not interpreted.
type CSVAdapter struct{}

// NewCSVAdapter creates the csvfile adapter.
func NewCSVAdapter() *CSVAdapter {
	return &CSVAdapter{}
}

// Kind returns "csvfile".
func (a *CSVAdapter) Kind() string { return "csvfile" }

// Open loads the CSV file at src.Path. A missing file is an empty table
// that will be created on first flush.
func (a *CSVAdapter) Open(ctx context.Context, src Source) (Conn, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("csvfile source has no path")
	}
	c := &csvConn{path: src.Path}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// csvConn holds the whole table in memory. Outside a transaction every Exec
// flushes to disk immediately; inside one, Begin snapshots the rows, Commit
// flushes, and Rollback restores the snapshot without touching the file.
type csvConn struct {
	path     string
	header   []string
	rows     []Row
	snapshot []Row
	inTx     bool
	closed   bool
}

func (c *csvConn) load() error {
	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	c.header = records[0]
	for _, rec := range records[1:] {
		row := make(Row, len(c.header))
		for i, col := range c.header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		c.rows = append(c.rows, row)
	}
	return nil
}

func (c *csvConn) flush() error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(c.header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range c.rows {
		rec := make([]string, len(c.header))
		for i, col := range c.header {
			rec[i] = fmt.Sprint(row[col])
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (c *csvConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	if c.closed {
		return 0, ErrClosed
	}
	verb, _, err := splitStmt(stmt)
	if err != nil {
		return 0, err
	}

	var n int64
	switch verb {
	case "insert":
		row, err := rowFromArgs(args)
		if err != nil {
			return 0, err
		}
		c.extendHeader(row)
		c.rows = append(c.rows, row)
		n = 1
	case "delete":
		n = int64(len(c.rows))
		c.rows = nil
	default:
		return 0, fmt.Errorf("csvfile backend: unknown verb %q", verb)
	}

	if !c.inTx {
		if err := c.flush(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (c *csvConn) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	if c.closed {
		return nil, ErrClosed
	}
	verb, _, err := splitStmt(stmt)
	if err != nil {
		return nil, err
	}
	if verb != "select" {
		return nil, fmt.Errorf("csvfile backend: %q is not a query verb", verb)
	}
	return copyRows(c.rows), nil
}

func (c *csvConn) Begin(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.inTx {
		return ErrTxActive
	}
	c.snapshot = copyRows(c.rows)
	c.inTx = true
	return nil
}

func (c *csvConn) Commit(ctx context.Context) error {
	if !c.inTx {
		return ErrNoTransaction
	}
	c.inTx = false
	c.snapshot = nil
	return c.flush()
}

func (c *csvConn) Rollback(ctx context.Context) error {
	if !c.inTx {
		return ErrNoTransaction
	}
	c.rows = c.snapshot
	c.snapshot = nil
	c.inTx = false
	return nil
}

func (c *csvConn) Close() error {
	if c.inTx {
		_ = c.Rollback(context.Background())
	}
	c.closed = true
	return nil
}

// extendHeader adds any columns the row introduces, keeping existing column
// order stable and sorting the new ones for deterministic output.
func (c *csvConn) extendHeader(row Row) {
	known := make(map[string]bool, len(c.header))
	for _, col := range c.header {
		known[col] = true
	}
	var added []string
	for col := range row {
		if !known[col] {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	c.header = append(c.header, added...)
}
