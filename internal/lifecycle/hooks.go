package lifecycle

import "context"

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Stopper adapts a blocking Stop method without a context.
func Stopper(fn func()) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			fn()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Closer adapts an io.Closer style method.
func Closer(fn func() error) func(context.Context) error {
	return func(context.Context) error {
		return fn()
	}
}
