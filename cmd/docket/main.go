package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// errRefused marks a domain refusal already printed to stdout.
var errRefused = errors.New("operation refused")

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, errRefused) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
