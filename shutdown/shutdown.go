package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context returns a context cancelled by the first interrupt. A second
// interrupt is left to the default handler, which kills the process.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	Notify(ch)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
