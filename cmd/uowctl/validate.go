package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Check that a plan has one final state, no loop, and known migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, _, err := loadPlan(flags, args[0])
			if err != nil {
				return err
			}

			path, err := plan.FollowPath(plan.InitialState(), "")
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ plan %s is valid: %s\n", plan.Name(), displayPath(path))

			return nil
		},
	}
}
