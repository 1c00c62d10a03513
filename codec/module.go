package codec

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/asset"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

// Module is one ready instance of an opaque codec. Implementations must be
// safe for sequential reuse; callers serialize access per instance.
type Module interface {
	Call(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error)
	Close(ctx context.Context) error
}

// Factory produces a ready Module. Worker-mode bridges call it once per
// worker; client-mode bridges call it through a Loader singleton.
type Factory func(ctx context.Context) (Module, error)

// Candidates returns the asset names for a codec in build preference order:
// the threaded variant first when the engine supports it, then the baseline.
// A variant is used completely or not at all.
func Candidates(name string, threads bool) []string {
	if threads {
		return []string{name + "-mt.wasm", name + ".wasm"}
	}
	return []string{name + ".wasm"}
}

// WASMFactory returns a Factory that locates the codec's binary through
// resolvers and instantiates it on the shared default engine.
func WASMFactory(name string, resolvers []asset.Resolver) Factory {
	return func(ctx context.Context) (Module, error) {
		eng, err := DefaultEngine(ctx)
		if err != nil {
			return nil, err
		}
		data, _, err := asset.LocateFirst(Candidates(name, eng.Threads()), resolvers)
		if err != nil {
			return nil, err
		}
		return NewWASMModule(ctx, eng, name, data)
	}
}

// wasmModule adapts a wazero instance to the Module interface using the
// squoosh C ABI exports.
type wasmModule struct {
	name string
	mod  api.Module

	malloc api.Function
	free   api.Function

	ops map[protocol.Op]api.Function

	resultPtr    api.Function
	resultLen    api.Function
	resultWidth  api.Function
	resultHeight api.Function
	resultFree   api.Function
}

// NewWASMModule instantiates wasmBytes on eng and binds the codec ABI
// exports. The module must export malloc, free, the result accessors, and
// at least one of encode, decode, or resize.
func NewWASMModule(ctx context.Context, eng *Engine, name string, wasmBytes []byte) (Module, error) {
	mod, err := eng.instantiate(ctx, name, wasmBytes)
	if err != nil {
		return nil, err
	}

	m := &wasmModule{
		name: name,
		mod:  mod,
		ops:  make(map[protocol.Op]api.Function),
	}

	required := map[string]*api.Function{
		"malloc":      &m.malloc,
		"free":        &m.free,
		"result_ptr":  &m.resultPtr,
		"result_len":  &m.resultLen,
		"result_free": &m.resultFree,
	}
	for exportName, target := range required {
		fn := mod.ExportedFunction(exportName)
		if fn == nil {
			_ = mod.Close(ctx)
			return nil, errors.NotFound(errors.PhaseCodec, "module export", exportName)
		}
		*target = fn
	}

	// Dimension accessors are only required by modules producing images.
	m.resultWidth = mod.ExportedFunction("result_width")
	m.resultHeight = mod.ExportedFunction("result_height")

	for _, op := range []protocol.Op{protocol.OpEncode, protocol.OpDecode, protocol.OpResize} {
		if fn := mod.ExportedFunction(string(op)); fn != nil {
			m.ops[op] = fn
		}
	}
	if len(m.ops) == 0 {
		_ = mod.Close(ctx)
		return nil, errors.InvalidInput(errors.PhaseCodec, "module exports no codec operation")
	}

	return m, nil
}

func (m *wasmModule) Call(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	fn, ok := m.ops[op]
	if !ok {
		return nil, errors.New(errors.PhaseCodec, errors.KindInvalidInput).
			Codec(m.name).
			Op(string(op)).
			Detail("module does not support %q", op).
			Build()
	}

	switch op {
	case protocol.OpDecode:
		return m.callDecode(ctx, fn, payload)
	default:
		return m.callImage(ctx, op, fn, payload)
	}
}

// callImage runs encode or resize: both take staged pixels plus an option
// record and differ only in the result shape.
func (m *wasmModule) callImage(ctx context.Context, op protocol.Op, fn api.Function, payload *protocol.Payload) (*protocol.Result, error) {
	img := payload.Image
	if img == nil {
		return nil, errors.InvalidInput(errors.PhaseCodec, "payload has no image")
	}

	imgPtr, err := m.stage(ctx, img.Data)
	if err != nil {
		return nil, err
	}
	defer m.unstage(ctx, imgPtr)

	var optPtr uint32
	if len(payload.Options) > 0 {
		optPtr, err = m.stage(ctx, payload.Options)
		if err != nil {
			return nil, err
		}
		defer m.unstage(ctx, optPtr)
	}

	ret, err := fn.Call(ctx, uint64(imgPtr), uint64(img.Width), uint64(img.Height), uint64(optPtr))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, string(op)+" trapped")
	}

	handle := uint32(ret[0])
	if handle == 0 {
		return nil, errors.CodecFailure(m.name, string(op))
	}
	defer m.releaseResult(ctx, handle)

	out, err := m.resultBytes(ctx, handle, op)
	if err != nil {
		return nil, err
	}

	if op == protocol.OpEncode {
		return &protocol.Result{Bytes: out}, nil
	}

	w, h, err := m.resultDims(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &protocol.Result{Image: &squooshkit.ImageBuffer{Data: out, Width: w, Height: h}}, nil
}

func (m *wasmModule) callDecode(ctx context.Context, fn api.Function, payload *protocol.Payload) (*protocol.Result, error) {
	if len(payload.Data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseCodec, "payload has no data")
	}

	ptr, err := m.stage(ctx, payload.Data)
	if err != nil {
		return nil, err
	}
	defer m.unstage(ctx, ptr)

	ret, err := fn.Call(ctx, uint64(ptr), uint64(len(payload.Data)))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "decode trapped")
	}

	handle := uint32(ret[0])
	if handle == 0 {
		return nil, errors.CodecFailure(m.name, string(protocol.OpDecode))
	}
	defer m.releaseResult(ctx, handle)

	out, err := m.resultBytes(ctx, handle, protocol.OpDecode)
	if err != nil {
		return nil, err
	}
	w, h, err := m.resultDims(ctx, handle)
	if err != nil {
		return nil, err
	}

	return &protocol.Result{Image: &squooshkit.ImageBuffer{Data: out, Width: w, Height: h}}, nil
}

func (m *wasmModule) Close(ctx context.Context) error {
	return m.mod.Close(ctx)
}

// stage copies data into module memory and returns its offset.
func (m *wasmModule) stage(ctx context.Context, data []byte) (uint32, error) {
	ret, err := m.malloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "malloc trapped")
	}
	ptr := uint32(ret[0])
	if ptr == 0 {
		return 0, errors.New(errors.PhaseCodec, errors.KindCodecFailure).
			Codec(m.name).
			Detail("module could not allocate %d bytes", len(data)).
			Build()
	}
	if !m.mod.Memory().Write(ptr, data) {
		return 0, errors.InvalidInput(errors.PhaseCodec, "write past end of module memory")
	}
	return ptr, nil
}

func (m *wasmModule) unstage(ctx context.Context, ptr uint32) {
	if ptr != 0 {
		_, _ = m.free.Call(ctx, uint64(ptr))
	}
}

func (m *wasmModule) releaseResult(ctx context.Context, handle uint32) {
	_, _ = m.resultFree.Call(ctx, uint64(handle))
}

// resultBytes copies the result payload out of module memory. The copy is
// required: result_free may recycle the region.
func (m *wasmModule) resultBytes(ctx context.Context, handle uint32, op protocol.Op) ([]byte, error) {
	ptrRet, err := m.resultPtr.Call(ctx, uint64(handle))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "result_ptr trapped")
	}
	lenRet, err := m.resultLen.Call(ctx, uint64(handle))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "result_len trapped")
	}

	length := uint32(lenRet[0])
	if length == 0 {
		return nil, errors.CodecFailure(m.name, string(op))
	}

	view, ok := m.mod.Memory().Read(uint32(ptrRet[0]), length)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseCodec, "result outside module memory")
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

func (m *wasmModule) resultDims(ctx context.Context, handle uint32) (int, int, error) {
	if m.resultWidth == nil || m.resultHeight == nil {
		return 0, 0, errors.NotFound(errors.PhaseCodec, "module export", "result_width/result_height")
	}
	wRet, err := m.resultWidth.Call(ctx, uint64(handle))
	if err != nil {
		return 0, 0, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "result_width trapped")
	}
	hRet, err := m.resultHeight.Call(ctx, uint64(handle))
	if err != nil {
		return 0, 0, errors.Wrap(errors.PhaseCodec, errors.KindCodecFailure, err, "result_height trapped")
	}
	return int(uint32(wRet[0])), int(uint32(hRet[0])), nil
}
