package scope

import (
	"log/slog"
	"time"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/locks"
	"github.com/amp-labs/amp-uow/notify"
	"github.com/amp-labs/amp-uow/shadowfs"
)

// CacheMode controls how repositories cache inside a scope. Modes are
// ordered from least to most restrictive.
type CacheMode int

const (
	CacheUnspecified CacheMode = iota
	CacheDefault
	CacheScoped
	CacheNone
)

func (m CacheMode) String() string {
	switch m {
	case CacheUnspecified:
		return "unspecified"
	case CacheDefault:
		return "default"
	case CacheScoped:
		return "scoped"
	case CacheNone:
		return "none"
	default:
		return "unknown"
	}
}

const (
	defaultLockTimeout = 20 * time.Second
)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLockMechanism sets the lock mechanism. The default is an in-process
// locks.Memory.
func WithLockMechanism(mechanism locks.Mechanism) ProviderOption {
	return func(p *Provider) {
		p.locks = mechanism
	}
}

// WithFileSystems enables scoped file systems.
func WithFileSystems(fileSystems *shadowfs.FileSystems) ProviderOption {
	return func(p *Provider) {
		p.fileSystems = fileSystems
	}
}

// WithPublisher enables scoped notifications.
func WithPublisher(publisher *notify.Publisher) ProviderOption {
	return func(p *Provider) {
		p.publisher = publisher
	}
}

// WithDefaultIsolation sets the isolation level used when a root scope does
// not ask for one.
func WithDefaultIsolation(level database.IsolationLevel) ProviderOption {
	return func(p *Provider) {
		p.defaultIsolation = level
	}
}

// WithLockTimeout bounds every lock wait.
func WithLockTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		p.lockTimeout = timeout
	}
}

// WithMaxDrainPasses bounds the re-entrant drain of scope contexts. Zero
// drains until no enlistment is left.
func WithMaxDrainPasses(passes int) ProviderOption {
	return func(p *Provider) {
		p.maxDrainPasses = passes
	}
}

// WithLogger replaces the context logger for scope lifecycle messages.
func WithLogger(log *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.log = log
	}
}

type options struct {
	isolation    database.IsolationLevel
	cacheMode    CacheMode
	autoComplete bool
	scopeContext *Context
	fileSystems  bool
	parent       *Scope
}

// Option configures one scope.
type Option func(*options)

// WithIsolationLevel requests an isolation level. Unset, the level is
// inherited from the parent.
func WithIsolationLevel(level database.IsolationLevel) Option {
	return func(o *options) {
		o.isolation = level
	}
}

// WithCacheMode requests a cache mode. Unset, the mode is inherited from the parent.
func WithCacheMode(mode CacheMode) Option {
	return func(o *options) {
		o.cacheMode = mode
	}
}

// WithAutoComplete makes disposal commit when neither Complete nor Abort was called.
func WithAutoComplete() Option {
	return func(o *options) {
		o.autoComplete = true
	}
}

// WithScopeContext gives a root scope an existing scope context to own and drain.
func WithScopeContext(sc *Context) Option {
	return func(o *options) {
		o.scopeContext = sc
	}
}

// WithScopeFileSystems enables shadowed file-system changes for the scope.
func WithScopeFileSystems() Option {
	return func(o *options) {
		o.fileSystems = true
	}
}
