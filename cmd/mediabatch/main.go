// Command mediabatch runs subtitle, text-to-speech, scene detection and download
// batches against the local media backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/mediabatch/internal/cli"
	"github.com/rshade/mediabatch/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the command tree and returns the process exit code. Interrupts cancel
// the running batch; the tasks in flight are reported as failed.
func run(args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil && !isBatchFailure(err) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return cli.ExitCode(err)
}

// isBatchFailure reports whether err only says that some tasks failed. Those runs
// already printed their results.
func isBatchFailure(err error) bool {
	var failure *cli.BatchFailureError
	return errors.As(err, &failure)
}
