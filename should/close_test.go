package should_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/should"
	"github.com/stretchr/testify/assert"
)

var errCloseFailed = errors.New("close failed")

type mockCloser struct {
	err    error
	closed bool
}

func (m *mockCloser) Close() error {
	m.closed = true

	return m.err
}

func capture() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer

	log := slog.New(slog.NewTextHandler(&buf, nil))

	return logger.WithLogger(context.Background(), log), &buf
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("success logs nothing", func(t *testing.T) {
		t.Parallel()

		ctx, buf := capture()
		closer := &mockCloser{}

		should.Close(ctx, closer, "closing")

		assert.True(t, closer.closed)
		assert.Empty(t, buf.String())
	})

	t.Run("failure is logged", func(t *testing.T) {
		t.Parallel()

		ctx, buf := capture()
		closer := &mockCloser{err: errCloseFailed}

		should.Close(ctx, closer, "closing resource")

		assert.True(t, closer.closed)
		assert.Contains(t, buf.String(), "closing resource")
		assert.Contains(t, buf.String(), "close failed")
	})

	t.Run("nil closer", func(t *testing.T) {
		t.Parallel()

		ctx, buf := capture()

		assert.NotPanics(t, func() { should.Close(ctx, nil, "closing") })
		assert.Empty(t, buf.String())
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	ctx, buf := capture()

	should.Run(ctx, func() error { return nil }, "quiet")
	assert.Empty(t, buf.String())

	should.Run(ctx, func() error { return errCloseFailed }, "stopping")
	assert.Contains(t, buf.String(), "stopping")

	assert.NotPanics(t, func() { should.Run(ctx, nil, "nothing") })
}
