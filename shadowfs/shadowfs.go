// Package shadowfs queues file-system changes made inside a scope. Changes
// are visible through the shadow right away and reach the underlying file
// system only when the owning root scope commits.
package shadowfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"

	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/spf13/afero"
)

var (
	// ErrUnknownFileSystem is returned for a name that was never registered.
	ErrUnknownFileSystem = errors.New("unknown file system")
	// ErrCompleted is returned when changing a shadow that was already completed.
	ErrCompleted = errors.New("shadow already completed")
)

// FileSystems is a registry of named file systems.
type FileSystems struct {
	mu    sync.RWMutex
	named map[string]afero.Fs
}

// New returns an empty registry.
func New() *FileSystems {
	return &FileSystems{named: make(map[string]afero.Fs)}
}

// Register adds or replaces a named file system.
func (f *FileSystems) Register(name string, fsys afero.Fs) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.named[name] = fsys
}

// Get returns a registered file system.
func (f *FileSystems) Get(name string) (afero.Fs, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	fsys, ok := f.named[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFileSystem, name)
	}

	return fsys, nil
}

// Names lists the registered file systems, sorted.
func (f *FileSystems) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.named))
	for name := range f.named {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Shadow starts a new set of pending changes.
func (f *FileSystems) Shadow() *Shadow {
	return &Shadow{registry: f}
}

type opKind int

const (
	opWrite opKind = iota
	opRemove
)

type op struct {
	kind opKind
	fs   string
	path string
	data []byte
	perm os.FileMode
}

// Shadow is the pending change set of one root scope.
type Shadow struct {
	registry  *FileSystems
	mu        sync.Mutex
	ops       []op
	completed bool
}

func (s *Shadow) queue(o op) error {
	if _, err := s.registry.Get(o.fs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return ErrCompleted
	}

	s.ops = append(s.ops, o)

	return nil
}

// WriteFile queues a write, creating parent directories when applied.
func (s *Shadow) WriteFile(fsName, name string, data []byte, perm os.FileMode) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	return s.queue(op{kind: opWrite, fs: fsName, path: name, data: buf, perm: perm})
}

// Remove queues a deletion. Removing a missing file is not an error when applied.
func (s *Shadow) Remove(fsName, name string) error {
	return s.queue(op{kind: opRemove, fs: fsName, path: name})
}

// ReadFile reads through the pending changes.
func (s *Shadow) ReadFile(fsName, name string) ([]byte, error) {
	fsys, err := s.registry.Get(fsName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()

	for i := len(s.ops) - 1; i >= 0; i-- {
		o := s.ops[i]
		if o.fs != fsName || o.path != name {
			continue
		}

		s.mu.Unlock()

		if o.kind == opRemove {
			return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
		}

		out := make([]byte, len(o.data))
		copy(out, o.data)

		return out, nil
	}

	s.mu.Unlock()

	return afero.ReadFile(fsys, name)
}

// Pending returns the number of queued changes.
func (s *Shadow) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ops)
}

// Complete applies the queued changes when completed is true and discards
// them otherwise. Every change is attempted; failures are aggregated.
func (s *Shadow) Complete(ctx context.Context, completed bool) error {
	s.mu.Lock()
	ops := s.ops
	s.ops = nil
	s.completed = true
	s.mu.Unlock()

	if !completed {
		if len(ops) > 0 {
			logger.Get(ctx).Debug("discarding shadowed file changes", "count", len(ops))
		}

		return nil
	}

	var collected errs.Collection

	for _, o := range ops {
		collected.Add(s.apply(o))
	}

	logger.Get(ctx).Debug("applied shadowed file changes", "count", len(ops), "failed", collected.Len())

	return collected.GetError()
}

func (s *Shadow) apply(o op) error {
	fsys, err := s.registry.Get(o.fs)
	if err != nil {
		return err
	}

	switch o.kind {
	case opRemove:
		if err := fsys.Remove(o.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s:%s: %w", o.fs, o.path, err)
		}
	case opWrite:
		if dir := path.Dir(o.path); dir != "." && dir != "/" {
			if err := fsys.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
				return fmt.Errorf("mkdir %s:%s: %w", o.fs, dir, err)
			}
		}

		if err := afero.WriteFile(fsys, o.path, o.data, o.perm); err != nil {
			return fmt.Errorf("write %s:%s: %w", o.fs, o.path, err)
		}
	}

	return nil
}
