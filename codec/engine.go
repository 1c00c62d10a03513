package codec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental),
	// required by the multi-threaded codec builds. When enabled, the threaded
	// build variant is preferred during asset resolution.
	EnableThreads bool
}

// Engine executes codec binaries with wazero. One engine serves any number
// of modules; compiled binaries are cached by content hash.
type Engine struct {
	runtime  wazero.Runtime
	threads  bool
	mu       sync.Mutex
	compiled map[uint64]wazero.CompiledModule
}

// NewEngine creates a wazero-backed engine. The codec builds are WASI
// binaries, so wasi_snapshot_preview1 is instantiated up front.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	threads := false
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
			threads = true
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	return &Engine{
		runtime:  runtime,
		threads:  threads,
		compiled: make(map[uint64]wazero.CompiledModule),
	}, nil
}

// Threads reports whether the threaded build variants may be used.
func (e *Engine) Threads() bool {
	return e.threads
}

// Close releases the wazero runtime and every module instantiated from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

const wasmMagic = "\x00asm"

// IsModule reports whether data starts with the core WASM binary magic.
func IsModule(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == wasmMagic
}

func (e *Engine) compile(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	key := xxhash.Sum64(wasmBytes)

	e.mu.Lock()
	cached, ok := e.compiled[key]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidInput, err, "compile module")
	}

	e.mu.Lock()
	// A concurrent compile of the same bytes may have won; keep the first.
	if prior, ok := e.compiled[key]; ok {
		e.mu.Unlock()
		_ = compiled.Close(ctx)
		return prior, nil
	}
	e.compiled[key] = compiled
	e.mu.Unlock()

	return compiled, nil
}

var instanceSeq atomic.Uint64

// instantiate creates a fresh instance of wasmBytes. Reactor-style codec
// builds export _initialize rather than _start.
func (e *Engine) instantiate(ctx context.Context, name string, wasmBytes []byte) (api.Module, error) {
	if !IsModule(wasmBytes) {
		return nil, errors.InvalidInput(errors.PhaseCodec, "asset is not a WASM binary")
	}

	compiled, err := e.compile(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().
		WithName(fmt.Sprintf("%s-%d", name, instanceSeq.Add(1))).
		WithStartFunctions("_initialize")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidInput, err, "instantiate module")
	}
	return mod, nil
}

var (
	defaultEngine    *Engine
	defaultEngineErr error
	defaultOnce      sync.Once
)

// DefaultEngine returns the process-wide engine shared by all codec
// packages, created on first use with default configuration.
func DefaultEngine(ctx context.Context) (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultEngineErr = NewEngine(ctx, &Config{})
	})
	return defaultEngine, defaultEngineErr
}
