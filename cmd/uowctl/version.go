package main

import (
	"fmt"

	"github.com/amp-labs/amp-uow/build"
	"github.com/spf13/cobra"
)

// buildInfo is injected at release time:
//
//	go build -ldflags "-X 'main.buildInfo=$(cat build.json)'"
var buildInfo string //nolint:gochecknoglobals

func newVersionCommand() *cobra.Command {
	var deps bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := build.Current(buildInfo)
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintf(out, "uowctl %s\n", info.Version)

			if info.GitCommit != "" {
				_, _ = fmt.Fprintf(out, "commit %s %s\n", info.GitCommit, info.GitDate)
			}

			if info.BuildTime != "" {
				_, _ = fmt.Fprintf(out, "built  %s\n", info.BuildTime)
			}

			if info.GoVersion != "" {
				_, _ = fmt.Fprintf(out, "go     %s\n", info.GoVersion)
			}

			if deps {
				for _, path := range info.DependencyPaths() {
					_, _ = fmt.Fprintf(out, "  %s %s\n", path, info.Dependencies[path])
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&deps, "deps", false, "Also list module dependencies")

	return cmd
}
