package codec

import (
	"context"
	"sync"

	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

// Loader owns a codec package's module singleton. The module is loaded at
// most once; concurrent first callers share one in-flight load instead of
// instantiating twice. A failed load is not cached, so the next call starts
// a fresh attempt.
type Loader struct {
	mu      sync.Mutex
	factory Factory
	mod     Module
	current *loadAttempt
}

type loadAttempt struct {
	done chan struct{}
	mod  Module
	err  error
}

func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// Load returns the singleton module, starting the load on first use. The
// load itself is never cancelled by one caller's context; ctx only bounds
// how long this caller waits for the shared result.
func (l *Loader) Load(ctx context.Context) (Module, error) {
	for {
		l.mu.Lock()
		if l.mod != nil {
			mod := l.mod
			l.mu.Unlock()
			return mod, nil
		}
		if l.factory == nil {
			l.mu.Unlock()
			return nil, errors.NotInitialized(errors.PhaseCodec, "module factory")
		}

		a := l.current
		if a == nil {
			a = &loadAttempt{done: make(chan struct{})}
			l.current = a
			factory := l.factory
			go l.run(a, factory)
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, errors.Aborted(errors.PhaseCodec, ctx.Err())
		case <-a.done:
		}

		if a.err != nil {
			return nil, a.err
		}
		// Re-read under the lock: Reset may have discarded this attempt's
		// module between completion and now.
	}
}

func (l *Loader) run(a *loadAttempt, factory Factory) {
	a.mod, a.err = factory(context.Background())

	l.mu.Lock()
	if l.current == a {
		l.current = nil
		if a.err == nil {
			l.mod = a.mod
		}
		l.mu.Unlock()
	} else {
		// Reset raced with this load; the result has no owner.
		l.mu.Unlock()
		if a.err == nil {
			_ = a.mod.Close(context.Background())
			a.mod = nil
			a.err = errors.Terminated("module loader")
		}
	}
	close(a.done)
}

// Reset tears the singleton down: the cached module is closed and the next
// Load starts from scratch. Exposed for tests and explicit shutdown.
func (l *Loader) Reset(ctx context.Context) error {
	l.mu.Lock()
	mod := l.mod
	l.mod = nil
	l.current = nil
	l.mu.Unlock()

	if mod != nil {
		return mod.Close(ctx)
	}
	return nil
}

// SetFactory replaces the module factory for subsequent loads. Callers
// normally pair it with Reset; the cached module, if any, is unaffected.
func (l *Loader) SetFactory(factory Factory) {
	l.mu.Lock()
	l.factory = factory
	l.mu.Unlock()
}
