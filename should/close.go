// Package should holds cleanup helpers whose failures are logged instead of
// returned. They fit deferred calls and error paths that already carry a
// more important error.
package should

import (
	"context"
	"io"

	"github.com/amp-labs/amp-uow/logger"
)

// Close closes closer and logs msg with the error if that fails. A nil
// closer is ignored.
//
//	defer should.Close(ctx, rows, "closing rows")
func Close(ctx context.Context, closer io.Closer, msg string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		logger.Get(ctx).Error(msg, "error", err)
	}
}

// Run calls fn and logs msg with the error if it fails.
func Run(ctx context.Context, fn func() error, msg string) {
	if fn == nil {
		return
	}

	if err := fn(); err != nil {
		logger.Get(ctx).Error(msg, "error", err)
	}
}
