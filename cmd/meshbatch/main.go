// Command meshbatch configures a photogrammetry pipeline from images or a
// scene file and computes it without a user interface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meshbatch/internal/batch"
	"meshbatch/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := newRootCmd(config.Load(nil), defaultDeps)
	cmd.SetArgs(expandMultiValue(os.Args[1:]))
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(batch.ExitCode(err))
}
