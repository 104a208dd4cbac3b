package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-uow/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zeebo/xxh3"
)

// pgLockNotAvailable is SQLSTATE 55P03.
const pgLockNotAvailable = "55P03"

// Postgres takes transaction-scoped advisory locks. The locks are released by
// the database when the transaction resolves, so ReleaseAll only forgets the
// bookkeeping. Advisory locks are re-entrant within one session, which covers
// every scope of a chain since they share the root transaction.
type Postgres struct {
	mu     sync.Mutex
	owners map[uuid.UUID][]string
}

var _ Mechanism = (*Postgres)(nil)

// NewPostgres returns an advisory-lock mechanism.
func NewPostgres() *Postgres {
	return &Postgres{owners: make(map[uuid.UUID][]string)}
}

// Key maps a lock name onto the 64-bit advisory lock key space.
func Key(name string) int64 {
	return int64(xxh3.HashString(name)) //nolint:gosec
}

func (p *Postgres) Acquire(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}

	if req.Exec == nil {
		return fmt.Errorf("%w: %q", ErrNoExecutor, req.Name)
	}

	if req.Timeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", req.Timeout.Milliseconds())
		if _, err := req.Exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setting lock timeout: %w", err)
		}
	}

	fn := "pg_advisory_xact_lock_shared"
	if req.Mode == Write {
		fn = "pg_advisory_xact_lock"
	}

	if _, err := req.Exec.ExecContext(ctx, "SELECT "+fn+"($1)", Key(req.Name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgLockNotAvailable {
			return fmt.Errorf("%w: %s lock %q: %w", ErrLockTimeout, req.Mode, req.Name, err)
		}

		return fmt.Errorf("acquiring %s lock %q: %w", req.Mode, req.Name, err)
	}

	p.mu.Lock()
	p.owners[req.Owner] = append(p.owners[req.Owner], req.Name)
	p.mu.Unlock()

	logger.Get(ctx).Debug("advisory lock acquired",
		"lock", req.Name, "mode", req.Mode.String(), "owner", req.Owner.String())

	return nil
}

func (p *Postgres) ReleaseAll(_ context.Context, owner uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.owners, owner)

	return nil
}

func (p *Postgres) Held(owner uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := p.owners[owner]
	if len(names) == 0 {
		return nil
	}

	out := make([]string, len(names))
	copy(out, names)

	return out
}
