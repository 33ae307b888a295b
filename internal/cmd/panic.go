package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

var (
	osExit                = os.Exit
	panicOutput io.Writer = os.Stderr
)

// RecoverFromPanic reports a panic with its stack trace and exits with ExitPanic.
// It must be deferred directly.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(panicOutput, "Application panic: %v\n", r)
		panicOutput.Write(debug.Stack())
		osExit(ExitPanic)
	}
}
