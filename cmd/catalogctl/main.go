// Command catalogctl runs catalog operations from the command line against the
// configured store and prints the resulting envelope.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitFailure   = 1 // the operation ran and returned a failure envelope
	exitUserError = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd, c := newRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if cerr := c.close(); cerr != nil && err == nil {
		err = cerr
	}
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errOperationFailed):
		return exitFailure
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitUserError
	}
}
