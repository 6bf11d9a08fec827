package host

import (
	"context"
)

// Startup is the pending result of Loader.Start. It resolves once, either
// with a running Instance or with the error that stopped the startup.
type Startup struct {
	done     chan struct{}
	instance *Instance
	err      error
}

func newStartup() *Startup {
	return &Startup{done: make(chan struct{})}
}

// Done is closed when the startup has resolved.
func (s *Startup) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the startup resolves or ctx is done. Cancelling ctx stops
// the wait, not the startup.
func (s *Startup) Wait(ctx context.Context) (*Instance, error) {
	select {
	case <-s.done:
		return s.instance, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the startup error, or nil while pending or on success.
func (s *Startup) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Instance returns the instance, or nil while pending or on failure.
// A failure in the entry point still yields the instance it ran in.
func (s *Startup) Instance() *Instance {
	select {
	case <-s.done:
		return s.instance
	default:
		return nil
	}
}

func (s *Startup) resolve(inst *Instance, err error) {
	s.instance = inst
	s.err = err
	close(s.done)
}
