package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stillcut/internal/services"
	"stillcut/internal/trim"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "stillcut:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, trim.ErrNothingToDrop):
		return services.ExitOK
	case errors.Is(err, trim.ErrNothingToKeep):
		return services.ExitFailure
	default:
		return services.ExitCode(err)
	}
}
