package mtproto

import (
	"context"
)

// runner is the part of *telegram.Client that background needs.
type runner interface {
	Run(ctx context.Context, f func(ctx context.Context) error) error
}

// stopFunc ends a background run and returns its result.
type stopFunc func() error

// background runs c until the returned stopFunc is called. It returns once
// the client is ready for RPCs, or with the error that ended the run early.
// Cancelling ctx only aborts the wait; the run itself lives until stopped.
func background(ctx context.Context, c runner) (stopFunc, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ready := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		return nil, err
	case <-ctx.Done():
		cancel()
		<-done
		return nil, ctx.Err()
	}

	return func() error {
		cancel()
		return <-done
	}, nil
}
