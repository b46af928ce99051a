package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/watchlist/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errorText(err))
		}
		stop()
		os.Exit(1)
	}
}

// errorText prefers the mapped user message and keeps the raw error for
// anything the mapper does not recognize.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("Error: %s\n  %v", core.FormatUserError(err), err)
	}
	return fmt.Sprintf("Error: %v", err)
}
