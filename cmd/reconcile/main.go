// Command reconcile audits the payroll ledger and applies reviewed
// corrections from the command line.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("reconcile failed", "error", err)
		stop()
		os.Exit(1)
	}
}
