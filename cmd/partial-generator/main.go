// Package main provides the CLI entrypoint for partial-generator.
//
// partial-generator reads Go types annotated with //partial:generate and
// writes, next to them, their partial form: a struct with every
// non-required field optional, plus converters between the two.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code. The
// signal handler is released before the caller exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Execute(ctx)
}
