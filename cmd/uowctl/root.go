package main

import (
	"fmt"
	"os"

	"github.com/amp-labs/amp-uow/migration"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config     string
	migrations string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "uowctl",
		Short: "Inspect and run migration plans.",
		Long: `uowctl inspects and runs migration plans defined in YAML.

Migrations are SQL files named after their migration type, loaded from the
directory given with --migrations. Runs record the state each plan reached
in the configured database, so a later run continues where the last one
stopped.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to the TOML config file")
	root.PersistentFlags().StringVarP(&flags.migrations, "migrations", "m", "", "Directory of .sql migrations")

	root.AddCommand(
		newShowCommand(flags),
		newValidateCommand(flags),
		newVisualizeCommand(flags),
		newRunCommand(flags),
		newVersionCommand(),
	)

	return root
}

// lenientTypes accepts every migration type.
type lenientTypes struct{}

func (lenientTypes) Has(migration.Type) bool {
	return true
}

// loadPlan reads the plan at path and the migrations of flags. Without a
// migrations directory, migration types are not checked.
func loadPlan(flags *rootFlags, path string) (*migration.Plan, *migration.Registry, error) {
	config, err := migration.LoadPlanConfig(path)
	if err != nil {
		return nil, nil, err
	}

	registry := migration.NewRegistry()

	var types migration.TypeChecker = lenientTypes{}

	if flags.migrations != "" {
		if err := registry.RegisterFS(os.DirFS(flags.migrations), "."); err != nil {
			return nil, nil, err
		}

		types = registry
	}

	plan, err := config.Build(types)
	if err != nil {
		return nil, nil, fmt.Errorf("plan %q: %w", config.Name, err)
	}

	return plan, registry, nil
}
