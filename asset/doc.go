// Package asset locates the prebuilt WASM codec binaries.
//
// Resolution is an ordered list of strategies, not a hardcoded path: each
// Resolver maps a logical binary name ("webp.wasm") to its bytes, and
// Locate walks the list using the first strategy that succeeds. The default
// chain probes, in order, a directory named by the SQUOOSH_WASM_DIR
// environment variable, then ./wasm, then ./assets/wasm. Callers deploying
// differently supply their own chain, typically an FS resolver over an
// embedded filesystem.
//
// Binaries may be stored gzip-compressed (either as name.gz next to the
// plain name, or with the gzip magic in the named file itself); resolvers
// decompress transparently.
package asset
