package main

import (
	"fmt"

	"github.com/amp-labs/amp-uow/migration/visualizer"
	"github.com/spf13/cobra"
)

func newVisualizeCommand(flags *rootFlags) *cobra.Command {
	var (
		direction string
		from      string
		highlight bool
		hide      bool
	)

	cmd := &cobra.Command{
		Use:   "visualize <plan.yaml>",
		Short: "Render a plan as a Mermaid state diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, _, err := loadPlan(flags, args[0])
			if err != nil {
				return err
			}

			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithHideRandomStates(hide)

			if highlight || cmd.Flags().Changed("from") {
				start := plan.InitialState()
				if cmd.Flags().Changed("from") {
					start = from
				}

				path, err := plan.FollowPath(start, "")
				if err != nil {
					return err
				}

				opts = opts.WithHighlightPath(path)
			}

			diagram, err := visualizer.GenerateMermaidWithOptions(plan, opts)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprint(cmd.OutOrStdout(), diagram)

			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "TB", "Diagram direction: TB or LR")
	cmd.Flags().StringVar(&from, "from", "", "Highlight the path from this state")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "Highlight the path from the initial state")
	cmd.Flags().BoolVar(&hide, "hide-random", false, "Hide generated state names")

	return cmd
}
