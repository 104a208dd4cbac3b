package migration

import "fmt"

// MergeBuilder reconverges two branches of a plan onto one target state.
//
// The first branch is declared with To and ToMigration from the plan's
// previous state. After With, the second branch is declared by naming the
// states it reached in its own history; its migrations are applied to the
// first branch on random intermediate states. As joins both: the end of the
// first branch runs the second branch's migrations, the end of the second
// branch replays the first branch's migrations, and both reach the target.
type MergeBuilder struct {
	plan       *Plan
	migrations []Type
	with       bool
	withLast   string
}

// Merge starts a merge from the plan's previous state.
func (p *Plan) Merge() *MergeBuilder {
	return &MergeBuilder{plan: p}
}

// To adds a no-op step to the current branch.
func (m *MergeBuilder) To(target string) *MergeBuilder {
	return m.ToMigration(target, NoopType)
}

// ToMigration adds a step to the current branch.
func (m *MergeBuilder) ToMigration(target string, migrationType Type) *MergeBuilder {
	if m.with {
		m.withLast = target
		target = m.plan.CreateRandomState()
	} else {
		m.migrations = append(m.migrations, migrationType)
	}

	m.plan.ToMigration(target, migrationType)

	return m
}

// With switches to the second branch.
func (m *MergeBuilder) With() *MergeBuilder {
	if m.with {
		m.plan.fail(fmt.Errorf("%w: With called twice", ErrMerge))

		return m
	}

	m.with = true

	return m
}

// As joins both branches on target and returns the plan.
func (m *MergeBuilder) As(target string) *Plan {
	if !m.with {
		return m.plan.fail(fmt.Errorf("%w: As called before With", ErrMerge))
	}

	if m.withLast == "" {
		return m.plan.fail(fmt.Errorf("%w: the second branch has no steps", ErrMerge))
	}

	m.plan.To(target)
	m.plan.From(m.withLast)

	if len(m.migrations) == 0 {
		return m.plan.To(target)
	}

	last := len(m.migrations) - 1
	for _, migrationType := range m.migrations[:last] {
		m.plan.ToMigration(m.plan.CreateRandomState(), migrationType)
	}

	return m.plan.ToMigration(target, m.migrations[last])
}

func (p *Plan) fail(err error) *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err == nil {
		p.err = err
	}

	return p
}
