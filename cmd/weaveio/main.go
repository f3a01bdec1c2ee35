// Command weaveio compiles weaveio query graphs into Cypher.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bamford/weave-io/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "weaveio: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
