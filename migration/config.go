package migration

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// PlanConfig describes a plan in YAML.
type PlanConfig struct {
	Name         string       `json:"name"         yaml:"name"`
	InitialState string       `json:"initialState" yaml:"initialState"`
	Steps        []StepConfig `json:"steps"        yaml:"steps"`
}

// StepConfig describes one builder call. From, when set, moves the builder
// before the transition is added.
type StepConfig struct {
	From      string         `json:"from,omitempty"      yaml:"from,omitempty"`
	To        string         `json:"to"                  yaml:"to"`
	Migration Type           `json:"migration,omitempty" yaml:"migration,omitempty"`
	Replace   *ReplaceConfig `json:"replace,omitempty"   yaml:"replace,omitempty"`
	Clone     *CloneConfig   `json:"clone,omitempty"     yaml:"clone,omitempty"`
}

// ReplaceConfig turns a step into ToWithReplace.
type ReplaceConfig struct {
	Recover          string `json:"recover"                    yaml:"recover"`
	RecoverMigration Type   `json:"recoverMigration,omitempty" yaml:"recoverMigration,omitempty"`
}

// CloneConfig turns a step into ToWithClone.
type CloneConfig struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end"   yaml:"end"`
}

// TypeChecker reports whether a migration type can be built.
type TypeChecker interface {
	Has(migrationType Type) bool
}

// LoadPlanConfig reads a plan config from a YAML file.
func LoadPlanConfig(path string) (*PlanConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %q: %w", path, err)
	}

	return LoadPlanConfigFromBytes(data)
}

// LoadPlanConfigFromFS reads a plan config from fsys.
func LoadPlanConfigFromFS(fsys fs.FS, path string) (*PlanConfig, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan from FS: %w", err)
	}

	return LoadPlanConfigFromBytes(data)
}

// LoadPlanConfigFromBytes parses a plan config from YAML.
func LoadPlanConfigFromBytes(data []byte) (*PlanConfig, error) {
	var config PlanConfig

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the shape of the config without building it.
func (c *PlanConfig) Validate() error {
	if c.Name == "" {
		return ErrPlanNameRequired
	}

	for i, step := range c.Steps {
		if step.To == "" {
			return fmt.Errorf("%w: step %d has no target", ErrInvalidStep, i)
		}

		if step.Replace != nil && step.Clone != nil {
			return fmt.Errorf("%w: step %d both replaces and clones", ErrInvalidStep, i)
		}

		if step.Clone != nil && step.Migration != "" {
			return fmt.Errorf("%w: step %d clones and names a migration", ErrInvalidStep, i)
		}

		if step.Replace != nil && step.Replace.Recover == "" {
			return fmt.Errorf("%w: step %d has no recover state", ErrInvalidStep, i)
		}
	}

	return nil
}

// Build creates and validates the plan. Every migration type must be known
// to types.
func (c *PlanConfig) Build(types TypeChecker, opts ...PlanOption) (*Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	for i, step := range c.Steps {
		for _, t := range step.types() {
			if !types.Has(t) {
				return nil, fmt.Errorf("step %d: %w: %q", i, ErrUnknownMigrationType, t)
			}
		}
	}

	opts = append([]PlanOption{WithInitialState(c.InitialState)}, opts...)
	plan := NewPlan(c.Name, opts...)

	for _, step := range c.Steps {
		if step.From != "" {
			plan.From(step.From)
		}

		switch {
		case step.Clone != nil:
			plan.ToWithClone(step.Clone.Start, step.Clone.End, step.To)
		case step.Replace != nil:
			plan.ToWithReplace(step.Replace.Recover, step.To, step.migration(), step.Replace.recoverMigration())
		default:
			plan.ToMigration(step.To, step.migration())
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

func (s StepConfig) migration() Type {
	if s.Migration == "" {
		return NoopType
	}

	return s.Migration
}

func (s StepConfig) types() []Type {
	out := []Type{s.migration()}

	if s.Replace != nil {
		out = append(out, s.Replace.recoverMigration())
	}

	return out
}

func (r *ReplaceConfig) recoverMigration() Type {
	if r.RecoverMigration == "" {
		return NoopType
	}

	return r.RecoverMigration
}
