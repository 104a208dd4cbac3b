// Command uowctl inspects and runs migration plans defined in YAML.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/amp-labs/amp-uow/database/drivers"
	"github.com/amp-labs/amp-uow/shutdown"
)

func main() {
	ctx, handler := shutdown.SetupHandler(context.Background())

	handler.BeforeShutdown(func() {
		_, _ = fmt.Fprintln(os.Stderr, "interrupted, rolling back the running scope")
	})

	err := newRootCommand().ExecuteContext(ctx)

	handler.Stop()

	if err != nil {
		os.Exit(1)
	}
}
