package scope

import (
	"context"

	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/using"
)

// Do runs fn inside a new scope. The scope completes when fn returns nil and
// is always disposed, also when fn panics. Errors from fn and from disposal
// are returned together. The context handed to fn logs with the scope id.
func Do(ctx context.Context, provider *Provider, fn func(ctx context.Context, s *Scope) error, opts ...Option) error {
	return using.NewResource(func() (*Scope, using.Closer, error) {
		s, err := provider.CreateScope(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}

		return s, func() error { return s.Dispose(ctx) }, nil
	}).Use(func(s *Scope) error {
		if err := fn(logger.WithScopeID(ctx, s.id), s); err != nil {
			return err
		}

		s.Complete()

		return nil
	})
}
