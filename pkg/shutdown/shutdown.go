// Package shutdown wires process signals into context cancellation so the
// HTTP server and background runners drain before exit.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"copacabana/pkg/logger"
)

// WithSignals returns a context derived from parent that is canceled on
// SIGINT or SIGTERM. The returned stop releases the signal hook.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()
	return ctx, cancel
}
