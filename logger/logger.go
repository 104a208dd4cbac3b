package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// LevelTrace sits below slog.LevelDebug and is used for per-statement SQL logging.
const LevelTrace = slog.Level(-8)

// Used for logging which part of the system is generating the log.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex protects concurrent calls to ConfigureLoggingWithOptions.
var configMutex sync.Mutex //nolint:gochecknoglobals

// It's considered good practice to use unexported custom types for context keys.
type contextKey string

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer
	// Extra handlers receive every record in addition to the primary one
	// (for example the OpenTelemetry log bridge).
	Extra []slog.Handler
}

// ConfigureLoggingWithOptions configures logging for the application.
// It returns the default logger.
// This function is thread-safe but modifies global state, so concurrent calls
// will be serialized.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       opts.MinLevel,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	if len(opts.Extra) > 0 {
		handler = &fanoutHandler{handlers: append([]slog.Handler{handler}, opts.Extra...)}
	}

	handler = NewAnnotationHandler(handler)

	logger := slog.New(handler)

	slog.SetDefault(logger)

	// Set up the legacy logger (we won't be using this directly, but 3rd party packages might)
	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// Option is a functional option for configuring logging via ConfigureLogging.
type Option func(*Options)

// WithJSON forces JSON output.
func WithJSON(enabled bool) Option {
	return func(o *Options) {
		o.JSON = enabled
	}
}

// WithLevel overrides the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) {
		o.MinLevel = level
	}
}

// WithOutput overrides the output writer.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithHandlers adds extra handlers that receive every record.
func WithHandlers(handlers ...slog.Handler) Option {
	return func(o *Options) {
		o.Extra = append(o.Extra, handlers...)
	}
}

var (
	// ErrInvalidLogOutput is returned when an invalid log output destination is specified.
	ErrInvalidLogOutput = errors.New("invalid log output")
	// ErrInvalidLogLevel is returned when LOG_LEVEL cannot be parsed.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// ConfigureLogging configures logging for the application from LOG_JSON,
// LOG_LEVEL and LOG_OUTPUT, then applies opts on top.
func ConfigureLogging(ctx context.Context, app string, opts ...Option) (*slog.Logger, error) {
	options := Options{
		Subsystem:   app,
		MinLevel:    slog.LevelInfo,
		LegacyLevel: slog.LevelInfo,
		Output:      os.Stdout,
	}

	if raw, ok := os.LookupEnv("LOG_JSON"); ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_JSON: %w", err)
		}

		options.JSON = enabled
	}

	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level, err := ParseLevel(raw)
		if err != nil {
			return nil, err
		}

		options.MinLevel = level
	}

	if raw, ok := os.LookupEnv("LOG_OUTPUT"); ok {
		switch raw {
		case "stdout":
			options.Output = os.Stdout
		case "stderr":
			options.Output = os.Stderr
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, raw)
		}
	}

	for _, o := range opts {
		o(&options)
	}

	Get(ctx).Debug("configuring logging", "subsystem", app)

	return ConfigureLoggingWithOptions(options), nil
}

// ParseLevel parses a level name; "trace" is accepted in addition to the slog names.
func ParseLevel(raw string) (slog.Level, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "trace") {
		return LevelTrace, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, raw)
	}

	return level, nil
}

func replaceLevelName(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}

	if level, ok := attr.Value.Any().(slog.Level); ok && level <= LevelTrace {
		attr.Value = slog.StringValue("TRACE")
	}

	return attr
}

// WithMuted adds a muted flag to the context. When muted is true, all logging
// operations on this context will be suppressed.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("mute"), muted)
}

func isMuted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	muted, ok := ctx.Value(contextKey("mute")).(bool)

	return ok && muted
}

// WithSubsystem adds a subsystem to the context. If the subsystem is not provided, the default subsystem
// will be used. The default subsystem is set by the ConfigureLogging function.
func WithSubsystem(ctx context.Context, subsystem string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("subsystem"), subsystem)
}

// GetSubsystem returns the subsystem from the context, falling back to the default.
func GetSubsystem(ctx context.Context) string { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	if val, ok := ctx.Value(contextKey("subsystem")).(string); ok {
		return val
	}

	if defaultSub := subsystem.Load(); defaultSub != nil {
		if val, ok := defaultSub.(string); ok {
			return val
		}
	}

	return ""
}

// WithScopeID records the id of the scope doing the work.
func WithScopeID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("scope_id"), id)
}

// GetScopeID returns the scope id recorded by WithScopeID.
func GetScopeID(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}

	id, ok := ctx.Value(contextKey("scope_id")).(uuid.UUID)

	return id, ok
}

// WithPlan records the name of the migration plan being executed.
func WithPlan(ctx context.Context, plan string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("plan"), plan)
}

// GetPlan returns the plan name recorded by WithPlan.
func GetPlan(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	plan, ok := ctx.Value(contextKey("plan")).(string)

	return plan, ok
}

// nullHandler discards everything; it backs muted contexts.
type nullHandler struct{}

func (n *nullHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (n *nullHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n *nullHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n *nullHandler) WithGroup(_ string) slog.Handler {
	return n
}

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals

func getRealContext(ctx ...context.Context) context.Context {
	for _, c := range ctx {
		if c != nil {
			return c
		}
	}

	return context.Background()
}

// Get returns a logger carrying the subsystem and any scope, plan or
// key-value attributes found in the context.
//
//nolint:contextcheck
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := getRealContext(ctx...)

	if isMuted(realCtx) {
		return nullLogger
	}

	base, ok := realCtx.Value(contextKey("logger")).(*slog.Logger)
	if !ok || base == nil {
		base = slog.Default()
	}

	logger := base

	if sub := GetSubsystem(realCtx); sub != "" {
		logger = logger.With("subsystem", sub)
	}

	if id, ok := GetScopeID(realCtx); ok {
		logger = logger.With("scope_id", id.String())
	}

	if plan, ok := GetPlan(realCtx); ok {
		logger = logger.With("plan", plan)
	}

	if vals := getValues(realCtx); vals != nil {
		logger = logger.With(vals...)
	}

	return logger
}

// WithLogger returns a context whose Get calls build on log instead of the
// default logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(getRealContext(ctx), contextKey("logger"), log)
}

// Trace logs at LevelTrace.
func Trace(ctx context.Context, msg string, args ...any) {
	Get(ctx).Log(ctx, LevelTrace, msg, args...)
}

// With returns a new context with the given values added.
// The values are added to the logger automatically.
func With(ctx context.Context, values ...any) context.Context {
	if len(values) == 0 && ctx != nil {
		return ctx
	}

	existing := getValues(ctx)
	vals := make([]any, 0, len(existing)+len(values))
	vals = append(vals, existing...)
	vals = append(vals, values...)

	return context.WithValue(getRealContext(ctx), contextKey("loggerValues"), vals)
}

func getValues(ctx context.Context) []any { //nolint:contextcheck
	if ctx == nil {
		return nil
	}

	val, ok := ctx.Value(contextKey("loggerValues")).([]any)
	if !ok {
		return nil
	}

	return val
}

// fanoutHandler forwards every record to each wrapped handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range f.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &fanoutHandler{handlers: handlers}
}
