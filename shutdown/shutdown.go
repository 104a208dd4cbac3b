// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amp-labs/amp-uow/logger"
)

// Handler cancels its context once the process receives a shutdown signal.
// Hooks registered with BeforeShutdown run first, while the context is
// still alive.
type Handler struct {
	mut     sync.Mutex
	hooks   []func()
	signals chan os.Signal
	done    chan struct{}
	once    sync.Once
	cancel  context.CancelFunc
}

// SetupHandler listens for the given signals, SIGINT and SIGTERM when none
// are given, and returns a context canceled when one arrives or when Stop
// is called.
func SetupHandler(ctx context.Context, signals ...os.Signal) (context.Context, *Handler) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(ctx)

	h := &Handler{
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	signal.Notify(h.signals, signals...)

	go h.wait(ctx)

	return ctx, h
}

func (h *Handler) wait(ctx context.Context) {
	defer h.cancel()
	defer signal.Stop(h.signals)

	select {
	case sig := <-h.signals:
		logger.Get(ctx).Warn("received " + sig.String() + ", shutting down")
		h.cleanup()
	case <-h.done:
	case <-ctx.Done():
	}
}

// BeforeShutdown registers fn to run when a signal arrives. Hooks run in
// registration order.
func (h *Handler) BeforeShutdown(fn func()) {
	h.mut.Lock()
	defer h.mut.Unlock()

	h.hooks = append(h.hooks, fn)
}

// Shutdown triggers the shutdown as if a signal had been received.
func (h *Handler) Shutdown() {
	select {
	case h.signals <- os.Interrupt:
	default:
	}
}

// Stop cancels the context without running the hooks.
func (h *Handler) Stop() {
	h.once.Do(func() {
		close(h.done)
	})
}

func (h *Handler) cleanup() {
	h.mut.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mut.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
