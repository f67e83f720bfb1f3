// Command obesity predicts obesity levels from the command line and serves
// the prediction form.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}
