// Package codec loads and invokes the opaque WASM codec modules.
//
// The Engine wraps a wazero runtime configured once at construction (memory
// limit, threads) and caches compiled modules by content hash, so a binary
// shared by several workers is compiled a single time. Capability decisions
// are made here and nowhere else; downstream code asks the engine instead of
// probing the environment.
//
// A Module is one ready instance of a codec binary. Its exports follow the
// squoosh C ABI: malloc/free for input staging, one export per operation
// (encode, decode, resize) returning a result handle, and result accessor
// exports for the output bytes and dimensions. Option records cross the
// boundary as packed arrays of 32-bit little-endian fields in the codec's
// declared order; see OptionRecord.
//
// The Loader gives each codec package its process-wide module singleton:
// loaded at most once, concurrent first callers share one in-flight load,
// and Reset exists so tests can tear the singleton down and substitute a
// fake via SetFactory.
package codec
