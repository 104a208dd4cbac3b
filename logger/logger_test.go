package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, level)

	level, err = ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithPlan(WithScopeID(WithSubsystem(t.Context(), "migrator"), id), "core")

	got, ok := GetScopeID(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	plan, ok := GetPlan(ctx)
	assert.True(t, ok)
	assert.Equal(t, "core", plan)
	assert.Equal(t, "migrator", GetSubsystem(ctx))

	ctx = With(ctx, "step", 1)
	ctx = With(ctx, "state", "B")
	assert.Equal(t, []any{"step", 1, "state", "B"}, getValues(ctx))
}

func TestMuted(t *testing.T) {
	t.Parallel()

	assert.Same(t, nullLogger, Get(WithMuted(t.Context(), true)))
	assert.NotSame(t, nullLogger, Get(WithMuted(t.Context(), false)))
}

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer

	handler := &fanoutHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	log := slog.New(handler).With("scope_id", "abc")
	log.Info("scope created")
	log.Error("scope aborted")

	assert.Equal(t, 2, strings.Count(first.String(), "\n"))
	assert.Equal(t, 1, strings.Count(second.String(), "\n"))

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(second.String())), &record))
	assert.Equal(t, "abc", record["scope_id"])
}

func TestConfigureLoggingWithOptions(t *testing.T) { //nolint:paralleltest
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		MinLevel:  LevelTrace,
		Output:    &buf,
	})

	Trace(WithScopeID(t.Context(), uuid.Nil), "statement", "sql", "SELECT 1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "TRACE", record["level"])
	assert.Equal(t, "test", record["subsystem"])
	assert.Equal(t, "SELECT 1", record["sql"])
	assert.Equal(t, uuid.Nil.String(), record["scope_id"])
}

func TestWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := With(WithLogger(t.Context(), base), "job", "reindex")

	Get(ctx).Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "reindex", record["job"])
}

func TestGet_SubsystemOnlyWhenSet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(t.Context(), base)

	Get(WithSubsystem(ctx, "")).Info("bare")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "subsystem")

	buf.Reset()

	Get(WithSubsystem(ctx, "scope")).Info("tagged")

	record = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "scope", record["subsystem"])
}
