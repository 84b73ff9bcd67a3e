package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bilisub/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps err to the process status; unclassified errors exit 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if code := services.ExitCode(err); code != 0 {
		return code
	}
	return 1
}
