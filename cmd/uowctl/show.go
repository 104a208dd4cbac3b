package main

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-uow/cli"
	"github.com/amp-labs/amp-uow/migration"
	"github.com/spf13/cobra"
)

func newShowCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan.yaml>",
		Short: "Print the transitions of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, _, err := loadPlan(flags, args[0])
			if err != nil {
				return err
			}

			final, err := plan.FinalState()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			_, _ = fmt.Fprint(out, cli.Banner("plan "+plan.Name(), cli.DefaultWidth, cli.AlignCenter))

			for _, t := range plan.Transitions() {
				_, _ = fmt.Fprintf(out, "%s -> %s", displayState(t.Source), displayState(t.Target))

				if t.Type != migration.NoopType {
					_, _ = fmt.Fprintf(out, " [%s]", t.Type)
				}

				_, _ = fmt.Fprintln(out)
			}

			_, _ = fmt.Fprint(out, cli.Divider(cli.DefaultWidth))
			_, _ = fmt.Fprintf(out, "initial: %s\nfinal:   %s\n", displayState(plan.InitialState()), displayState(final))

			return nil
		},
	}
}

func displayState(state string) string {
	if state == "" {
		return "(empty)"
	}

	return state
}

func displayPath(path []string) string {
	shown := make([]string, len(path))
	for i, state := range path {
		shown[i] = displayState(state)
	}

	return strings.Join(shown, " -> ")
}
