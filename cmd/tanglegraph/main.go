// Command tanglegraph runs the cluster resolution pipeline over graph
// fixtures and records the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/tanglegraph/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
