package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/amp-uow/logger"
	"github.com/google/uuid"
)

type held struct {
	name  string
	group uuid.UUID
	mode  Mode
}

type lockState struct {
	readers map[uuid.UUID]int
	writers map[uuid.UUID]int
}

func (s *lockState) grantable(group uuid.UUID, mode Mode) bool {
	for g := range s.writers {
		if g != group {
			return false
		}
	}

	if mode == Read {
		return true
	}

	for g := range s.readers {
		if g != group {
			return false
		}
	}

	return true
}

func (s *lockState) counts(mode Mode) map[uuid.UUID]int {
	if mode == Write {
		return s.writers
	}

	return s.readers
}

func (s *lockState) empty() bool {
	return len(s.readers) == 0 && len(s.writers) == 0
}

// Memory is an in-process Mechanism. Locks are shared between readers,
// exclusive for writers, and re-entrant within a group.
type Memory struct {
	mu      sync.Mutex
	locks   map[string]*lockState
	owners  map[uuid.UUID][]held
	changed chan struct{}
}

var _ Mechanism = (*Memory)(nil)

// NewMemory returns an empty in-process lock table.
func NewMemory() *Memory {
	return &Memory{
		locks:   make(map[string]*lockState),
		owners:  make(map[uuid.UUID][]held),
		changed: make(chan struct{}),
	}
}

func (m *Memory) Acquire(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}

	var timeout <-chan time.Time

	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	for {
		m.mu.Lock()

		state := m.locks[req.Name]
		if state == nil {
			state = &lockState{readers: make(map[uuid.UUID]int), writers: make(map[uuid.UUID]int)}
			m.locks[req.Name] = state
		}

		if state.grantable(req.Group, req.Mode) {
			state.counts(req.Mode)[req.Group]++
			m.owners[req.Owner] = append(m.owners[req.Owner], held{name: req.Name, group: req.Group, mode: req.Mode})
			m.mu.Unlock()

			logger.Get(ctx).Debug("lock acquired",
				"lock", req.Name, "mode", req.Mode.String(), "owner", req.Owner.String())

			return nil
		}

		wait := m.changed
		m.mu.Unlock()

		select {
		case <-wait:
		case <-timeout:
			return fmt.Errorf("%w: %s lock %q after %s", ErrLockTimeout, req.Mode, req.Name, req.Timeout)
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s lock %q: %w", req.Mode, req.Name, ctx.Err())
		}
	}
}

func (m *Memory) ReleaseAll(ctx context.Context, owner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holds := m.owners[owner]
	if len(holds) == 0 {
		return nil
	}

	for _, h := range holds {
		state := m.locks[h.name]
		if state == nil {
			continue
		}

		counts := state.counts(h.mode)

		counts[h.group]--
		if counts[h.group] <= 0 {
			delete(counts, h.group)
		}

		if state.empty() {
			delete(m.locks, h.name)
		}
	}

	delete(m.owners, owner)

	close(m.changed)
	m.changed = make(chan struct{})

	logger.Get(ctx).Debug("locks released", "owner", owner.String(), "count", len(holds))

	return nil
}

func (m *Memory) Held(owner uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	holds := m.owners[owner]
	if len(holds) == 0 {
		return nil
	}

	names := make([]string, len(holds))
	for i, h := range holds {
		names[i] = h.name
	}

	return names
}
