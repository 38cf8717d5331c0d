package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"csvapi/internal/query"
	"csvapi/internal/tabular"
)

// Manager owns the store lifecycle: Uninitialized → Loaded →
// Loaded(replaced) → Closed.
//
// The active snapshot reference is the only mutable shared state. Readers
// acquire it atomically and run their whole query against that snapshot;
// Reload and Close serialize on a mutex, publish the replacement with a
// single atomic store, and drop the manager's reference to the superseded
// snapshot, whose database closes once its in-flight queries drain. A
// reload concurrent with an in-flight query never affects that query's
// result set.
type Manager struct {
	source  string
	table   string
	columns []tabular.Column

	mu      sync.Mutex // serializes Reload and Close
	current atomic.Pointer[Snapshot]
	closed  bool
}

// Open loads the source and returns a Manager in the Loaded state.
// table may be empty, in which case it is derived from the source name.
//
// The column set captured here is the one the grammar must be generated
// from: it is fixed at construction and deliberately not refreshed by
// Reload.
func Open(ctx context.Context, source, table string) (*Manager, error) {
	if table == "" {
		table = DeriveTableName(source)
	}
	if !tabular.ValidIdent(table) {
		return nil, fmt.Errorf("table name %q is not a valid identifier", table)
	}

	snap, err := newSnapshot(ctx, source, table)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		source:  source,
		table:   table,
		columns: snap.Columns(),
	}
	m.current.Store(snap)
	return m, nil
}

// Source returns the dataset location the manager loads from.
func (m *Manager) Source() string { return m.source }

// Table returns the table name.
func (m *Manager) Table() string { return m.table }

// Columns returns the construction-time column set. Reload does not
// change it: the parameter surface derived from these columns is fixed
// for the lifetime of the API, even if a reloaded dataset differs. This
// is a documented limitation, not an accident.
func (m *Manager) Columns() []tabular.Column { return m.columns }

// Snapshot returns the active snapshot, or a STORE_UNAVAILABLE error
// after Close. The returned reference is a peek: it carries no usage
// claim and may be superseded at any time.
func (m *Manager) Snapshot() (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, query.NewStoreUnavailableError()
	}
	return snap, nil
}

// acquire returns the active snapshot with its reference count bumped;
// the caller must release it when done. Retries when a concurrent reload
// drains the loaded snapshot between the pointer load and the bump.
func (m *Manager) acquire() (*Snapshot, error) {
	for {
		snap := m.current.Load()
		if snap == nil {
			return nil, query.NewStoreUnavailableError()
		}
		if snap.acquire() {
			return snap, nil
		}
	}
}

// Reload builds a brand-new snapshot from the same source, publishes it
// atomically, and drops the manager's reference to the old one; its
// database closes once queries that already acquired it complete. On
// failure the old snapshot stays active untouched.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return query.NewStoreUnavailableError()
	}

	snap, err := newSnapshot(ctx, m.source, m.table)
	if err != nil {
		return err
	}

	old := m.current.Swap(snap)
	if old != nil {
		if err := old.release(); err != nil {
			return fmt.Errorf("release superseded snapshot: %w", err)
		}
	}
	return nil
}

// Close releases the store's resources. Table identity and the column
// set persist (the API surface is unaffected), but queries fail with
// STORE_UNAVAILABLE afterwards. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	old := m.current.Swap(nil)
	if old != nil {
		return old.release()
	}
	return nil
}
