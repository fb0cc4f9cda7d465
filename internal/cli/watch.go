package cli

import (
	"context"
	"log/slog"
)

// Watcher is the part of the engine RunWatch needs.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// RunWatch calls fn once, then again after every reload of the template
// library, until ctx is done. Errors of fn are logged and do not stop the loop.
func RunWatch(ctx context.Context, w Watcher, logger *slog.Logger, fn func(context.Context) error) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	run := func() {
		if err := fn(ctx); err != nil {
			logger.Error("watch iteration failed", "err", err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("library changed, running again")
			run()
		}
	}
}
