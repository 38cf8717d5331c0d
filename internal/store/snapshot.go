// Package store owns the ingested, swappable, queryable copy of the
// dataset.
//
// Each snapshot is a private in-memory SQLite database materialized from
// one read of the source. The Manager holds the active snapshot behind an
// atomic pointer: readers load it without blocking, reload builds a full
// replacement before publishing it, and a superseded snapshot closes only
// after its last in-flight query completes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"csvapi/internal/tabular"
)

// driverName registers a sqlite3 driver variant whose connections carry
// the custom regexp() predicate function.
const driverName = "sqlite3_csvapi"

var registerDriver sync.Once

// regexpFunc implements the REGEXP operator: a regex *search* (not a
// full match) of the column value against the pattern. NULL never
// matches. A pattern that doesn't compile returns an error; the executor
// pre-validates patterns, so an error here is an internal fault.
func regexpFunc(pattern string, value any) (bool, error) {
	if value == nil {
		return false, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("regexp: %w", err)
	}
	switch v := value.(type) {
	case string:
		return re.MatchString(v), nil
	case []byte:
		return re.Match(v), nil
	default:
		return re.MatchString(fmt.Sprint(v)), nil
	}
}

// Snapshot is one materialized, immutable version of the table. Its
// lifetime runs from a successful load until it is superseded by a newer
// snapshot or the manager is closed.
type Snapshot struct {
	id      string
	table   string
	columns []tabular.Column
	db      *sql.DB

	// pin holds one connection open for the snapshot's lifetime. The
	// shared-cache memory database is dropped when its last connection
	// closes; the pin keeps it alive while the pool is idle.
	pin *sql.Conn

	// refs counts the manager's reference plus one per in-flight query.
	// A superseded snapshot keeps serving queries that already acquired
	// it; the database closes when the count drains to zero.
	refs atomic.Int64
}

// newSnapshot loads the source and materializes it into a fresh in-memory
// database. Any failure aborts the whole load: no partial snapshot is
// ever returned.
func newSnapshot(ctx context.Context, source, table string) (*Snapshot, error) {
	registerDriver.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpFunc, true)
			},
		})
	})

	headers, records, err := readTable(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	columns, err := tabular.InferColumns(headers, records)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	id := uuid.NewString()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", id)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	pin, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pin snapshot database: %w", err)
	}

	snap := &Snapshot{
		id:      id,
		table:   table,
		columns: columns,
		db:      db,
		pin:     pin,
	}
	snap.refs.Store(1)

	if err := snap.materialize(ctx, records); err != nil {
		snap.release()
		return nil, err
	}
	return snap, nil
}

// materialize creates the table and inserts every record inside one
// transaction, binding all cell values as parameters.
func (s *Snapshot) materialize(ctx context.Context, records [][]string) error {
	defs := make([]string, len(s.columns))
	names := make([]string, len(s.columns))
	marks := make([]string, len(s.columns))
	for i, col := range s.columns {
		defs[i] = fmt.Sprintf("%q %s", col.Name, columnAffinity(col.Type))
		names[i] = fmt.Sprintf("%q", col.Name)
		marks[i] = "?"
	}

	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", s.table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		s.table, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(s.columns))
	for n, record := range records {
		for i, col := range s.columns {
			v, err := tabular.ParseValue(record[i], col.Type)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", n+1, col.Name, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", n+1, err)
		}
	}

	return tx.Commit()
}

// Table returns the snapshot's table name.
func (s *Snapshot) Table() string { return s.table }

// Columns returns the snapshot's inferred columns in declared order.
func (s *Snapshot) Columns() []tabular.Column { return s.columns }

// acquire bumps the reference count. Fails when the count has already
// drained to zero (the snapshot was superseded and closed); the caller
// then reloads the current pointer.
func (s *Snapshot) acquire() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops one reference. The last release closes the pinned
// connection and the database; acquire never resurrects a drained
// snapshot, so the close runs exactly once.
func (s *Snapshot) release() error {
	if s.refs.Add(-1) > 0 {
		return nil
	}
	s.pin.Close()
	return s.db.Close()
}

// columnAffinity maps a semantic type to a SQLite column affinity.
// Booleans are stored as 0/1 integers; dates stay TEXT and are compared
// through DATE().
func columnAffinity(t tabular.SemanticType) string {
	switch t {
	case tabular.TypeInteger, tabular.TypeBoolean:
		return "INTEGER"
	case tabular.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
