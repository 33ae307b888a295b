package main

import (
	"context"
	"os"

	"azpim/internal/cmd"
)

func main() {
	defer cmd.RecoverFromPanic()

	// SIGINT and SIGTERM cancel the in-flight PIM request
	ctx, stop := cmd.WithShutdownSignals(context.Background(), os.Stderr)

	err := cmd.ExecuteWithContext(ctx)
	stop()
	if err != nil {
		os.Exit(cmd.HandleError(os.Stderr, err))
	}
}
