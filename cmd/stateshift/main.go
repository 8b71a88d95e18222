// Command stateshift expands //stateshift: annotated Go sources into
// compile-time checked state machines.
//
// Usage:
//
//	stateshift gen ./...
//	stateshift check ./...
//	stateshift watch ./...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "stateshift:", err)
		stop()
		os.Exit(1)
	}
}
