// File: cmd/applyflow/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/BondarenkoCom/applyflow/cmd"
	"github.com/BondarenkoCom/applyflow/internal/observability"
)

const panicLogFile = "panic.log"

func main() {
	defer handlePanic()

	// Graceful shutdown on SIGINT/SIGTERM; in-flight attempts get their
	// contexts canceled and the browser shuts down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// handlePanic flushes logs and writes the stack to a dedicated file so a
// crash during a long batch run is not lost in scrollback.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := os.WriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "CRASH DETECTED. Details logged to %s\n", panicLogFile)
	os.Exit(1)
}
