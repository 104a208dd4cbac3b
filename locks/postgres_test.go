package locks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExec struct {
	statements []string
	args       [][]any
	err        error
}

func (r *recordingExec) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	r.args = append(r.args, args)

	if r.err != nil && len(args) > 0 {
		return nil, r.err
	}

	return nil, nil //nolint:nilnil
}

func (r *recordingExec) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil //nolint:nilnil
}

func (r *recordingExec) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestPostgres_Acquire(t *testing.T) {
	t.Parallel()

	pg := NewPostgres()
	exec := &recordingExec{}
	owner := uuid.New()

	require.NoError(t, pg.Acquire(t.Context(), Request{
		Group: owner, Owner: owner, Name: "content", Mode: Write, Timeout: 1500 * time.Millisecond, Exec: exec,
	}))
	require.NoError(t, pg.Acquire(t.Context(), Request{
		Group: owner, Owner: owner, Name: "media", Mode: Read, Exec: exec,
	}))

	assert.Equal(t, []string{
		"SET LOCAL lock_timeout = '1500ms'",
		"SELECT pg_advisory_xact_lock($1)",
		"SELECT pg_advisory_xact_lock_shared($1)",
	}, exec.statements)
	assert.Equal(t, []any{Key("content")}, exec.args[1])
	assert.Equal(t, []string{"content", "media"}, pg.Held(owner))

	require.NoError(t, pg.ReleaseAll(t.Context(), owner))
	assert.Empty(t, pg.Held(owner))
}

func TestPostgres_Timeout(t *testing.T) {
	t.Parallel()

	pg := NewPostgres()
	exec := &recordingExec{err: &pq.Error{Code: pgLockNotAvailable, Message: "canceling statement due to lock timeout"}}
	owner := uuid.New()

	err := pg.Acquire(t.Context(), Request{Group: owner, Owner: owner, Name: "content", Mode: Write, Exec: exec})
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Empty(t, pg.Held(owner))
}

func TestPostgres_RequiresExecutor(t *testing.T) {
	t.Parallel()

	err := NewPostgres().Acquire(t.Context(), Request{Owner: uuid.New(), Name: "content"})
	require.ErrorIs(t, err, ErrNoExecutor)
}

func TestKey_Stable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("content"), Key("content"))
	assert.NotEqual(t, Key("content"), Key("media"))
}
