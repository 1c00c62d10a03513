// Package squooshkit exposes prebuilt WebAssembly image codecs (WebP, AVIF,
// JPEG XL, MozJPEG, resize) behind a uniform request/response API, dispatching
// each call either to a background worker or to the calling goroutine.
//
// The compression and resampling algorithms live entirely inside opaque,
// externally compiled WASM binaries executed with wazero. This library only
// provides the coordination around them: worker lifecycle, message framing
// with correlation IDs, cancellation, validation, and option marshalling.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	squooshkit/          Root package with the ImageBuffer data model and dispatch modes
//	├── bridge/          Generic dispatch bridge: inline and worker strategies
//	├── worker/          Worker lifecycle: spawn, ready handshake, terminate
//	├── protocol/        Request/response envelopes and correlation-ID matching
//	├── codec/           wazero engine, module loading, singleton caches
//	├── asset/           Ordered resolver strategies locating codec binaries
//	├── errors/          Structured error types for debugging
//	└── webp, avif, jxl, mozjpeg, resize/
//	                     Per-codec public APIs: options, defaults, factories
//
// # Quick Start
//
// Encode an RGBA image to WebP on a background worker:
//
//	enc, err := webp.NewEncoder(squooshkit.ModeWorker)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enc.Terminate(ctx)
//
//	opts := webp.DefaultOptions()
//	opts.Quality = 90
//	data, err := enc.Encode(ctx, img, &opts)
//
// Or use the one-shot form, which allocates and releases its own bridge:
//
//	data, err := webp.Encode(ctx, img, nil)
//
// # Dispatch Modes
//
// ModeClient runs the codec module in the calling goroutine. ModeWorker
// delegates to a dedicated goroutine owning its own module instance; the
// pixel buffer is handed over to the worker and the caller's ImageBuffer is
// detached (its Data becomes nil), mirroring a structured-clone transfer.
//
// # Cancellation
//
// Every operation takes a context.Context. Cancellation is observed before
// any work starts, after each asynchronous hand-off (module load, worker
// round trip), and immediately before returning. It does not preempt a call
// already executing inside the WASM module.
//
// # Thread Safety
//
// Bridges, encoders, and loaders are safe for concurrent use. A worker is
// exclusively owned by the bridge that spawned it; two bridges never share
// one worker. Loaded modules in client mode are process-wide singletons,
// read-only after initialization.
package squooshkit
