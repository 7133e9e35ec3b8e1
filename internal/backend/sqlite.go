package backend

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter opens SQLite databases through database/sql.
type SQLiteAdapter struct{}

// NewSQLiteAdapter creates the sqlite adapter.
func NewSQLiteAdapter() *SQLiteAdapter {
	return &SQLiteAdapter{}
}

// Kind returns "sqlite".
func (a *SQLiteAdapter) Kind() string { return "sqlite" }

// Open opens a SQLite database from src.DSN (or src.Path when no DSN is
// given) and verifies connectivity with a ping.
func (a *SQLiteAdapter) Open(ctx context.Context, src Source) (Conn, error) {
	dsn := src.DSN
	if dsn == "" {
		dsn = src.Path
	}
	if dsn == "" {
		return nil, fmt.Errorf("sqlite source has no dsn or path")
	}
	dsn += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &sqliteConn{db: db}, nil
}

// sqliteConn routes statements to the open transaction when one exists,
// falling back to the bare database otherwise.
type sqliteConn struct {
	db *sql.DB
	tx *sql.Tx
}

func (c *sqliteConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var res sql.Result
	var err error
	if c.tx != nil {
		res, err = c.tx.ExecContext(ctx, stmt, args...)
	} else {
		res, err = c.db.ExecContext(ctx, stmt, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (c *sqliteConn) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	var rows *sql.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, stmt, args...)
	} else {
		rows, err = c.db.QueryContext(ctx, stmt, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (c *sqliteConn) Begin(ctx context.Context) error {
	if c.db == nil {
		return ErrClosed
	}
	if c.tx != nil {
		return ErrTxActive
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *sqliteConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (c *sqliteConn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func (c *sqliteConn) Close() error {
	if c.db == nil {
		return nil
	}
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
