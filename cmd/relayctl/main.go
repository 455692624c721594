// Command relayctl is a small command line client for the chat relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitOK      = 0
	exitRuntime = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		stop()
		os.Exit(exitRuntime)
	}
	stop()
	os.Exit(exitOK)
}
