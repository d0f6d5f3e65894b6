package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/cmd"
	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/observability"
)

func main() {
	// SIGINT/SIGTERM cancel the run context for a graceful stop.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
