// Package store persists small string values, such as the current state of
// a migration plan, inside the transaction of the calling scope.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/amp-labs/amp-uow/database"
)

// DefaultTable is the table used by the SQL store.
const DefaultTable = "uow_key_value"

// ErrInvalidTable is returned for a table name that is not a plain identifier.
var ErrInvalidTable = errors.New("invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL stores values in a key/value table, reading and writing through the
// executor it is handed.
type SQL struct {
	dialect database.Dialect
	table   string
	now     func() time.Time
}

// Option configures a SQL store.
type Option func(*SQL)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(s *SQL) {
		s.table = table
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SQL) {
		s.now = now
	}
}

// NewSQL creates a SQL store for the given dialect.
func NewSQL(dialect database.Dialect, opts ...Option) (*SQL, error) {
	s := &SQL{
		dialect: dialect,
		table:   DefaultTable,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if !identifier.MatchString(s.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, s.table)
	}

	return s, nil
}

// EnsureSchema creates the table when it does not exist yet.
func (s *SQL) EnsureSchema(ctx context.Context, exec database.Executor) error {
	_, err := exec.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`, s.table))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}

	return nil
}

// Get returns the value stored under key.
func (s *SQL) Get(ctx context.Context, exec database.Executor, key string) (string, bool, error) {
	if err := s.EnsureSchema(ctx, exec); err != nil {
		return "", false, err
	}

	query := fmt.Sprintf("SELECT value FROM %s WHERE name = %s", s.table, s.dialect.Placeholder(1))

	var value string

	err := exec.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("reading %q: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQL) Set(ctx context.Context, exec database.Executor, key, value string) error {
	if err := s.EnsureSchema(ctx, exec); err != nil {
		return err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (name, value, updated_at) VALUES (%s, %s, %s) "+
			"ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))

	if _, err := exec.ExecContext(ctx, query, key, value, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (s *SQL) Delete(ctx context.Context, exec database.Executor, key string) error {
	if err := s.EnsureSchema(ctx, exec); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE name = %s", s.table, s.dialect.Placeholder(1))

	if _, err := exec.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}

// Memory keeps values in process and ignores the executor. Writes are not
// rolled back with the transaction.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, _ database.Executor, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]

	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, _ database.Executor, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

func (m *Memory) Delete(_ context.Context, _ database.Executor, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}
