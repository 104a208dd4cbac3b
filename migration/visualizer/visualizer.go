// Package visualizer renders migration plans as Mermaid state diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/amp-labs/amp-uow/migration"
)

// ErrPlanNil is returned for a nil plan.
var ErrPlanNil = errors.New("plan cannot be nil")

var randomState = regexp.MustCompile(`^\{[0-9A-F-]{36}\}$`)

// GenerateMermaid renders plan with the default options.
func GenerateMermaid(plan *migration.Plan) (string, error) {
	return GenerateMermaidWithOptions(plan, DefaultOptions())
}

// GenerateMermaidFromFile loads a YAML plan and renders it. Migration types
// are not checked.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := migration.LoadPlanConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load plan: %w", err)
	}

	plan, err := config.Build(anyType{})
	if err != nil {
		return "", err
	}

	return GenerateMermaid(plan)
}

// GenerateMermaidWithOptions renders plan. The plan must validate.
func GenerateMermaidWithOptions(plan *migration.Plan, opts Options) (string, error) {
	if plan == nil {
		return "", ErrPlanNil
	}

	final, err := plan.FinalState()
	if err != nil {
		return "", err
	}

	states := plan.KnownStates()

	// state names are arbitrary strings, so nodes get generated ids
	ids := make(map[string]string, len(states))
	for i, state := range states {
		ids[state] = fmt.Sprintf("s%d", i)
	}

	highlighted := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlighted[state] = true
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	}

	for _, state := range states {
		fmt.Fprintf(&sb, "    state \"%s\" as %s\n", label(state, opts), ids[state])
	}

	if initial, ok := ids[plan.InitialState()]; ok {
		fmt.Fprintf(&sb, "    [*] --> %s\n", initial)
	}

	for _, t := range plan.Transitions() {
		edge := ""
		if opts.ShowMigrations && t.Type != migration.NoopType {
			edge = ": " + escape(string(t.Type))
		}

		fmt.Fprintf(&sb, "    %s --> %s%s\n", ids[t.Source], ids[t.Target], edge)
	}

	fmt.Fprintf(&sb, "    %s --> [*]\n", ids[final])

	for _, state := range states {
		switch {
		case highlighted[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", ids[state])
		case state == final:
			fmt.Fprintf(&sb, "    class %s finalState\n", ids[state])
		case randomState.MatchString(state):
			fmt.Fprintf(&sb, "    class %s randomState\n", ids[state])
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef randomState fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray: 4 4\n")
	sb.WriteString("    classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

func label(state string, opts Options) string {
	switch {
	case state == "":
		return "(empty)"
	case opts.HideRandomStates && randomState.MatchString(state):
		return "…"
	default:
		return escape(state)
	}
}

func escape(s string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ").Replace(s)
}

type anyType struct{}

func (anyType) Has(migration.Type) bool {
	return true
}
