// Package scope implements nested, ambient units of work.
//
// A root scope owns one database transaction; scopes created while it is
// ambient nest inside it and share the transaction. Scopes are disposed in
// strict LIFO order. The root commits only if it and every nested scope
// completed; it then finalizes the side effects recorded during the unit of
// work (locks, shadowed files, notifications, enlisted completion actions).
//
// The ambient scope is found through the context.Context of the logical call
// chain, see package ambient. Use WithChain (or ambient.NewChain) once at the
// start of a request or job.
package scope

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-uow/ambient"
	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/locks"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/notify"
	"github.com/amp-labs/amp-uow/shadowfs"
	"github.com/google/uuid"
)

const (
	scopeStackName   = "scope.scopes"
	contextStackName = "scope.contexts"
)

// Provider creates scopes over one connection factory.
type Provider struct {
	factory          database.Factory
	locks            locks.Mechanism
	fileSystems      *shadowfs.FileSystems
	publisher        *notify.Publisher
	defaultIsolation database.IsolationLevel
	lockTimeout      time.Duration
	maxDrainPasses   int
	log              *slog.Logger
}

// NewProvider returns a provider opening transactions with factory.
func NewProvider(factory database.Factory, opts ...ProviderOption) *Provider {
	p := &Provider{
		factory:          factory,
		locks:            locks.NewMemory(),
		defaultIsolation: database.ReadCommitted,
		lockTimeout:      defaultLockTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithChain returns ctx carrying an ambient chain, adding one when missing.
func WithChain(ctx context.Context) context.Context {
	return ambient.EnsureChain(ctx)
}

// Locks returns the provider's lock mechanism.
func (p *Provider) Locks() locks.Mechanism {
	return p.locks
}

// scopeLogger returns the logger for records about the scope id. The id
// replaces any scope id already carried by ctx.
func (p *Provider) scopeLogger(ctx context.Context, id uuid.UUID) *slog.Logger {
	if p.log != nil {
		return p.log.With("scope_id", id.String())
	}

	return logger.Get(logger.WithScopeID(ctx, id))
}

func scopeStack(ctx context.Context) (*ambient.Chain, *ambient.Stack[*Scope], error) {
	chain, err := ambient.From(ctx)
	if err != nil {
		return nil, nil, err
	}

	stack, err := ambient.StackOf[*Scope](chain, scopeStackName)
	if err != nil {
		return nil, nil, err
	}

	return chain, stack, nil
}

func contextStack(chain *ambient.Chain) (*ambient.Stack[*Context], error) {
	return ambient.StackOf[*Context](chain, contextStackName)
}

// AmbientScope returns the current scope of the chain carried by ctx.
func AmbientScope(ctx context.Context) (*Scope, bool) {
	_, stack, err := scopeStack(ctx)
	if err != nil {
		return nil, false
	}

	return stack.Peek()
}

// AmbientContext returns the current scope context of the chain carried by ctx.
func AmbientContext(ctx context.Context) (*Context, bool) {
	chain, err := ambient.From(ctx)
	if err != nil {
		return nil, false
	}

	stack, err := contextStack(chain)
	if err != nil {
		return nil, false
	}

	return stack.Peek()
}

// CreateScope creates a scope and makes it ambient. When a scope is already
// ambient the new scope nests inside it.
func (p *Provider) CreateScope(ctx context.Context, opts ...Option) (*Scope, error) {
	chain, stack, err := scopeStack(ctx)
	if err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if parent, ok := stack.Peek(); ok {
		o.parent = parent
	}

	s, err := p.newScope(chain, false, o)
	if err != nil {
		return nil, err
	}

	if s.parent == nil {
		if err := p.pushRootContext(chain, s); err != nil {
			return nil, err
		}
	}

	stack.Push(s)
	p.created(ctx, s)

	return s, nil
}

// pushRootContext makes the root's scope context ambient. A root scope owns
// the context it was given, or a fresh one when no context is ambient yet.
func (p *Provider) pushRootContext(chain *ambient.Chain, s *Scope) error {
	ctxStack, err := contextStack(chain)
	if err != nil {
		return err
	}

	sc := s.scopeContext
	if sc == nil {
		if _, ok := ctxStack.Peek(); ok {
			return nil
		}

		sc = NewContext()
	}

	sc.bind(chain.ID(), p.maxDrainPasses)
	s.scopeContext = sc
	s.ownsContext = true
	ctxStack.Push(sc)

	return nil
}

// CreateDetachedScope creates a root scope that is not ambient. Make it
// ambient with AttachScope.
func (p *Provider) CreateDetachedScope(ctx context.Context, opts ...Option) (*Scope, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := p.newScope(nil, true, o)
	if err != nil {
		return nil, err
	}

	s.scopeContext = NewContext()
	s.ownsContext = true

	p.created(ctx, s)

	return s, nil
}

// AttachScope makes a detachable scope ambient on the chain carried by ctx,
// remembering what was ambient before.
func (p *Provider) AttachScope(ctx context.Context, s *Scope) error {
	if !s.detachable {
		return ErrNotDetachable
	}

	if s.disposed.Load() {
		return ErrDisposed
	}

	chain, stack, err := scopeStack(ctx)
	if err != nil {
		return err
	}

	ctxStack, err := contextStack(chain)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}

	s.origScope, _ = stack.Peek()
	s.origContext, _ = ctxStack.Peek()
	s.attached = true
	s.chain = chain
	s.scopeContext.bind(chain.ID(), p.maxDrainPasses)

	stack.Push(s)
	ctxStack.Push(s.scopeContext)

	p.scopeLogger(ctx, s.id).Debug("scope attached", "chain_id", chain.ID().String())

	return nil
}

// DetachScope removes the ambient detachable scope from the chain carried by
// ctx and restores what was ambient before it was attached.
func (p *Provider) DetachScope(ctx context.Context) (*Scope, error) {
	chain, stack, err := scopeStack(ctx)
	if err != nil {
		return nil, err
	}

	top, ok := stack.Peek()
	if !ok {
		return nil, ambient.ErrNoAmbient
	}

	if !top.detachable {
		return nil, ErrNotDetachable
	}

	if err := top.restore(chain); err != nil {
		return nil, err
	}

	p.scopeLogger(ctx, top.id).Debug("scope detached", "chain_id", chain.ID().String())

	return top, nil
}

func (p *Provider) newScope(chain *ambient.Chain, detachable bool, o options) (*Scope, error) {
	if detachable && (o.parent != nil || o.scopeContext != nil || o.autoComplete) {
		return nil, ErrDetachableConflict
	}

	parent := o.parent

	if parent != nil {
		if o.scopeContext != nil {
			return nil, ErrNestedScopeContext
		}

		if o.cacheMode != CacheUnspecified && o.cacheMode < parent.CacheMode() {
			return nil, fmt.Errorf("%w: %s requested inside a %s scope",
				ErrCacheModeConflict, o.cacheMode, parent.CacheMode())
		}

		if o.fileSystems && parent.root().shadow == nil {
			return nil, ErrFileSystemsConflict
		}
	}

	s := &Scope{
		id:           uuid.New(),
		provider:     p,
		parent:       parent,
		chain:        chain,
		detachable:   detachable,
		isolation:    o.isolation,
		cacheMode:    o.cacheMode,
		autoComplete: o.autoComplete,
		scopeContext: o.scopeContext,
		created:      time.Now(),
	}

	if parent == nil {
		s.members = []uuid.UUID{s.id}

		if o.fileSystems {
			if p.fileSystems == nil {
				return nil, ErrNoFileSystems
			}

			s.shadow = p.fileSystems.Shadow()
		}

		if p.publisher != nil {
			s.batch = p.publisher.Batch()
		}
	} else {
		parent.root().addMember(s.id)
	}

	return s, nil
}

func (p *Provider) created(ctx context.Context, s *Scope) {
	kind := s.kind()
	scopesCreated.WithLabelValues(kind).Inc()

	if s.parent == nil {
		s.span = startScopeSpan(ctx, s)
	}

	args := []any{
		"kind", kind,
		"isolation", s.IsolationLevel().String(),
		"cache_mode", s.CacheMode().String(),
	}

	if s.parent != nil {
		args = append(args, "parent_id", s.parent.id.String())
	}

	p.scopeLogger(ctx, s.id).Info("scope created", args...)
}
