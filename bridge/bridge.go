package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
	"github.com/bnowak008/squoosh-kit-sub000/worker"
)

// Adapter tells a bridge where one codec's modules come from. Loader is the
// package singleton used inline; Factory produces a fresh instance inside
// each worker.
type Adapter struct {
	Name    string
	Loader  *codec.Loader
	Factory codec.Factory
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithWorkerOptions overrides worker spawn tuning (ready timeout, queue
// size) for the worker strategy.
func WithWorkerOptions(opts worker.Options) Option {
	return func(b *Bridge) {
		b.workerOpts = opts
	}
}

type state int

const (
	stateUninitialized state = iota
	stateCreating
	stateReady
	stateTerminated
)

// Bridge presents one operation interface with the strategy fixed at
// construction. Safe for concurrent use; overlapping calls on one worker
// are correlated by request ID, with no ordering guarantee between them.
type Bridge struct {
	adapter    Adapter
	mode       squooshkit.Mode
	logger     *zap.Logger
	workerOpts worker.Options

	mu     sync.Mutex
	state  state
	handle *worker.Handle
	spawn  *spawnAttempt
}

type spawnAttempt struct {
	done   chan struct{}
	handle *worker.Handle
	err    error
}

// New constructs a bridge for adapter with the given dispatch mode.
func New(adapter Adapter, mode squooshkit.Mode, opts ...Option) (*Bridge, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if adapter.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseDispatch, "adapter has no codec name")
	}
	if mode == squooshkit.ModeClient && adapter.Loader == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "adapter loader")
	}
	if mode == squooshkit.ModeWorker && adapter.Factory == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "adapter factory")
	}

	b := &Bridge{
		adapter: adapter,
		mode:    mode,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("codec", adapter.Name), zap.String("mode", string(mode)))
	return b, nil
}

// Mode returns the dispatch mode fixed at construction.
func (b *Bridge) Mode() squooshkit.Mode {
	return b.mode
}

// Dispatch runs one operation through the configured strategy.
func (b *Bridge) Dispatch(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	if b.mode == squooshkit.ModeClient {
		return b.dispatchInline(ctx, op, payload)
	}
	return b.dispatchWorker(ctx, op, payload)
}

// Terminate releases the worker, if any. For the inline strategy this is a
// documented no-op, safe to call unconditionally. Idempotent; the bridge
// remains usable and re-creates a worker on the next call.
func (b *Bridge) Terminate(ctx context.Context) error {
	b.mu.Lock()
	a := b.spawn
	h := b.handle
	b.spawn = nil
	b.handle = nil
	b.state = stateTerminated
	b.mu.Unlock()

	if a != nil {
		// A spawn is in flight; it will see itself detached and tear the
		// worker down when it finishes. Wait so terminate-then-exit callers
		// do not leak the worker.
		select {
		case <-a.done:
		case <-ctx.Done():
			return errors.Aborted(errors.PhaseWorker, ctx.Err())
		}
	}
	if h != nil {
		return h.Terminate(ctx)
	}
	return nil
}

func (b *Bridge) dispatchInline(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	mod, err := b.adapter.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	res, err := mod.Call(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Bridge) dispatchWorker(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	// Validate on the caller side so malformed input fails fast here
	// instead of crashing the worker.
	if payload.Image != nil {
		if err := payload.Image.Validate(); err != nil {
			return nil, err
		}
		// Hand the backing storage to the worker; the caller's buffer is
		// detached from this point on.
		src := payload.Image
		payload.Image = &squooshkit.ImageBuffer{Data: src.Detach(), Width: src.Width, Height: src.Height}
	} else if len(payload.Data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "payload has neither image nor data")
	}

	h, err := b.worker(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	res, err := h.Do(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// worker returns the ready handle, spawning one if needed. Concurrent calls
// during Creating share the in-flight spawn instead of starting another.
func (b *Bridge) worker(ctx context.Context) (*worker.Handle, error) {
	for {
		b.mu.Lock()
		switch b.state {
		case stateReady:
			h := b.handle
			b.mu.Unlock()
			return h, nil

		case stateCreating:
			a := b.spawn
			b.mu.Unlock()
			select {
			case <-a.done:
			case <-ctx.Done():
				return nil, errors.Aborted(errors.PhaseWorker, ctx.Err())
			}
			if a.err != nil {
				return nil, a.err
			}
			// Success was installed under the lock; loop to pick it up
			// (or to respawn if a terminate slipped in between).

		default: // Uninitialized or Terminated: create a fresh worker.
			a := &spawnAttempt{done: make(chan struct{})}
			b.spawn = a
			b.state = stateCreating
			b.mu.Unlock()
			go b.runSpawn(a)
		}
	}
}

// runSpawn performs one worker creation. The spawn uses a background
// context: it is shared by every call that joins it, so no single caller's
// cancellation may abort it.
func (b *Bridge) runSpawn(a *spawnAttempt) {
	h, err := worker.Spawn(context.Background(), b.adapter.Name, b.adapter.Factory, &b.workerOpts)

	b.mu.Lock()
	if b.spawn == a {
		b.spawn = nil
		if err != nil {
			// Creation failed; clear so the next call starts fresh.
			b.state = stateUninitialized
			b.logger.Warn("worker creation failed", zap.Error(err))
		} else {
			b.state = stateReady
			b.handle = h
		}
		b.mu.Unlock()
	} else {
		// Terminate raced with the spawn; the new worker has no owner.
		b.mu.Unlock()
		if err == nil {
			_ = h.Terminate(context.Background())
			h = nil
			err = errors.Terminated("bridge")
		}
	}

	a.handle = h
	a.err = err
	close(a.done)
}

func checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.Aborted(errors.PhaseDispatch, ctx.Err())
	default:
		return nil
	}
}
