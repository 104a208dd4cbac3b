package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-uow/cli"
	"github.com/amp-labs/amp-uow/migration"
	"github.com/amp-labs/amp-uow/notify"
	"github.com/amp-labs/amp-uow/scope"
	"github.com/amp-labs/amp-uow/store"
	"github.com/spf13/cobra"
)

// topicApplied is published for every transition once its scope committed.
const topicApplied = "migration.applied"

func newRunCommand(flags *rootFlags) *cobra.Command {
	var (
		yes  bool
		each bool
	)

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Run a plan from its recorded state to its final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if flags.migrations == "" {
				return errors.New("run needs --migrations") //nolint:err113
			}

			ctx := scope.WithChain(cmd.Context())
			out := cmd.OutOrStdout()

			plan, registry, err := loadPlan(flags, args[0])
			if err != nil {
				return err
			}

			a, err := bootstrap(ctx, flags.config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() {
				err = errors.Join(err, a.Close(ctx))
			}()

			states, err := store.NewSQL(a.factory.Dialect())
			if err != nil {
				return err
			}

			a.publisher.Subscribe(topicApplied, func(_ context.Context, n notify.Notification) error {
				if t, ok := n.Payload.(migration.Transition); ok {
					_, _ = fmt.Fprintf(out, "applied %s\n", t)
				}

				return nil
			})

			opts := []migration.ExecutorOption{
				migration.WithTransitionHook(announce),
			}

			if each {
				opts = append(opts, migration.WithTransactionPerTransition())
			}

			upgrader := migration.NewUpgrader(a.provider, registry, states, opts...)

			from, err := upgrader.CurrentState(ctx, plan)
			if err != nil {
				return err
			}

			path, err := plan.FollowPath(from, "")
			if err != nil {
				return err
			}

			if len(path) == 1 {
				_, _ = fmt.Fprintf(out, "plan %s is up to date at %s\n", plan.Name(), displayState(from))

				return nil
			}

			_, _ = fmt.Fprintf(out, "plan %s: %s\n", plan.Name(), displayPath(path))

			if !yes {
				ok, err := cli.NewPrompter().Confirm(fmt.Sprintf("Apply %d transitions", len(path)-1))
				if err != nil {
					return err
				}

				if !ok {
					_, _ = fmt.Fprintln(out, "aborted")

					return nil
				}
			}

			result, err := upgrader.Execute(ctx, plan)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "plan %s reached %s with %d migrations\n",
				plan.Name(), displayState(result.FinalState()), len(result.CompletedTransitions()))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&each, "each", false, "Commit every transition on its own")

	return cmd
}

// announce queues a notification published once the transition committed.
func announce(_ context.Context, s *scope.Scope, _ *migration.Plan, t migration.Transition) error {
	if t.Type == migration.NoopType {
		return nil
	}

	return s.Notify(notify.Notification{Topic: topicApplied, Payload: t})
}
