// Package dbtest provides a recording database/sql driver for repository
// tests that cannot reach a real MySQL or Postgres server.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// Call is one statement the driver received.
type Call struct {
	Query string
	Args  []driver.Value
}

// Recorder records every statement and answers queries with canned rows.
type Recorder struct {
	mu      sync.Mutex
	execs   []Call
	queries []Call

	Columns []string
	Rows    [][]driver.Value
	Err     error
}

// Open returns a *sql.DB backed by a fresh Recorder. The db is closed when
// the test ends.
func Open(t testing.TB) (*sql.DB, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	db := sql.OpenDB(connector{rec})
	t.Cleanup(func() { db.Close() })
	return db, rec
}

// Execs returns the Exec calls seen so far.
func (r *Recorder) Execs() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.execs...)
}

// Queries returns the Query calls seen so far.
func (r *Recorder) Queries() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.queries...)
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

type connector struct{ rec *Recorder }

func (c connector) Connect(context.Context) (driver.Conn, error) { return conn{c.rec}, nil }
func (c connector) Driver() driver.Driver                        { return drv{c.rec} }

type drv struct{ rec *Recorder }

func (d drv) Open(string) (driver.Conn, error) { return conn{d.rec}, nil }

type conn struct{ rec *Recorder }

func (c conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("dbtest: prepared statements are not supported")
}
func (c conn) Close() error              { return nil }
func (c conn) Begin() (driver.Tx, error) { return nil, errors.New("dbtest: transactions are not supported") }

func (c conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.execs = append(c.rec.execs, Call{Query: query, Args: values(args)})
	if c.rec.Err != nil {
		return nil, c.rec.Err
	}
	return driver.RowsAffected(1), nil
}

func (c conn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.queries = append(c.rec.queries, Call{Query: query, Args: values(args)})
	if c.rec.Err != nil {
		return nil, c.rec.Err
	}
	return &rows{cols: c.rec.Columns, data: c.rec.Rows}, nil
}

type rows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *rows) Columns() []string { return r.cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
