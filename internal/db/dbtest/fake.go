// Package dbtest provides an in-memory db.Querier that records statements and
// replays scripted results.
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/example/dine-composer/internal/db"
)

type Call struct {
	SQL  string
	Args []any
}

// Fake answers queries whose SQL contains a registered fragment.
type Fake struct {
	mu    sync.Mutex
	Calls []Call
	rows  map[string][][]any
	errs  map[string]error
}

var _ db.Querier = (*Fake)(nil)

func New() *Fake {
	return &Fake{rows: map[string][][]any{}, errs: map[string]error{}}
}

// On makes statements containing fragment return rows.
func (f *Fake) On(fragment string, rows ...[]any) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[fragment] = rows
	return f
}

// Fail makes statements containing fragment return err.
func (f *Fake) Fail(fragment string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fragment] = err
	return f
}

func (f *Fake) record(sql string, args []any) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{SQL: sql, Args: args})
	for frag, err := range f.errs {
		if strings.Contains(sql, frag) {
			return nil, err
		}
	}
	for frag, rows := range f.rows {
		if strings.Contains(sql, frag) {
			return rows, nil
		}
	}
	return nil, nil
}

// Executed returns the statements that contain fragment.
func (f *Fake) Executed(fragment string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if strings.Contains(c.SQL, fragment) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Exec(_ context.Context, sql string, args ...any) error {
	_, err := f.record(sql, args)
	return err
}

func (f *Fake) QueryRow(_ context.Context, sql string, args ...any) db.Row {
	rows, err := f.record(sql, args)
	if err != nil {
		return row{err: err}
	}
	if len(rows) == 0 {
		return row{err: ErrNoRows}
	}
	return row{values: rows[0]}
}

func (f *Fake) Query(_ context.Context, sql string, args ...any) (db.Rows, error) {
	rows, err := f.record(sql, args)
	if err != nil {
		return nil, err
	}
	return &rowSet{rows: rows, pos: -1}, nil
}

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type rowSet struct {
	rows [][]any
	pos  int
}

func (r *rowSet) Close()     {}
func (r *rowSet) Err() error { return nil }
func (r *rowSet) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *rowSet) Scan(dest ...any) error {
	return assign(r.rows[r.pos], dest)
}

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("dbtest: %d values for %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

// ErrNoRows is pgx's no-rows error so callers exercise their not-found mapping.
var ErrNoRows = pgx.ErrNoRows
