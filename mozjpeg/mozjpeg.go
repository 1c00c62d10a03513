// Package mozjpeg encodes JPEG images through the prebuilt MozJPEG codec
// module, and decodes them through the same module's decoder entry point.
package mozjpeg

import (
	"context"
	"sync"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/asset"
	"github.com/bnowak008/squoosh-kit-sub000/bridge"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

const codecName = "mozjpeg"

// Color spaces accepted by the encoder.
const (
	ColorSpaceGrayscale = 1
	ColorSpaceRGB       = 2
	ColorSpaceYCbCr     = 3
)

// Options mirror the native MozJPEG encoder configuration.
type Options struct {
	Quality               int // [0, 100]
	Baseline              bool
	Arithmetic            bool
	Progressive           bool
	OptimizeCoding        bool
	Smoothing             int // [0, 100]
	ColorSpace            int // one of the ColorSpace constants
	QuantTable            int // [0, 8]
	TrellisMultipass      bool
	TrellisOptZero        bool
	TrellisOptTable       bool
	TrellisLoops          int // [1, 50]
	AutoSubsample         bool
	ChromaSubsample       int // [1, 4], used when AutoSubsample is off
	SeparateChromaQuality bool
	ChromaQuality         int // [0, 100]
}

func DefaultOptions() Options {
	return Options{
		Quality:         75,
		Progressive:     true,
		OptimizeCoding:  true,
		ColorSpace:      ColorSpaceYCbCr,
		QuantTable:      3,
		TrellisLoops:    1,
		AutoSubsample:   true,
		ChromaSubsample: 2,
		ChromaQuality:   75,
	}
}

func (o *Options) validate() error {
	ranges := []struct {
		field  string
		value  int
		lo, hi int
	}{
		{"quality", o.Quality, 0, 100},
		{"smoothing", o.Smoothing, 0, 100},
		{"color_space", o.ColorSpace, ColorSpaceGrayscale, ColorSpaceYCbCr},
		{"quant_table", o.QuantTable, 0, 8},
		{"trellis_loops", o.TrellisLoops, 1, 50},
		{"chroma_subsample", o.ChromaSubsample, 1, 4},
		{"chroma_quality", o.ChromaQuality, 0, 100},
	}
	for _, r := range ranges {
		if r.value < r.lo || r.value > r.hi {
			return errors.OutOfRange(r.field, r.value, r.lo, r.hi)
		}
	}
	return nil
}

func (o *Options) pack() []byte {
	var r codec.OptionRecord
	r.PutInt(o.Quality)
	r.PutBool(o.Baseline)
	r.PutBool(o.Arithmetic)
	r.PutBool(o.Progressive)
	r.PutBool(o.OptimizeCoding)
	r.PutInt(o.Smoothing)
	r.PutInt(o.ColorSpace)
	r.PutInt(o.QuantTable)
	r.PutBool(o.TrellisMultipass)
	r.PutBool(o.TrellisOptZero)
	r.PutBool(o.TrellisOptTable)
	r.PutInt(o.TrellisLoops)
	r.PutBool(o.AutoSubsample)
	r.PutInt(o.ChromaSubsample)
	r.PutBool(o.SeparateChromaQuality)
	r.PutInt(o.ChromaQuality)
	return r.Bytes()
}

var (
	factoryMu sync.Mutex
	factory   codec.Factory = codec.WASMFactory(codecName, asset.DefaultResolvers())
	loader                  = codec.NewLoader(loadModule)
)

func loadModule(ctx context.Context) (codec.Module, error) {
	factoryMu.Lock()
	f := factory
	factoryMu.Unlock()
	return f(ctx)
}

// SetModuleFactory replaces how the codec module is obtained and resets the
// cached singleton. Pass nil to restore the default resolution chain.
func SetModuleFactory(f codec.Factory) {
	factoryMu.Lock()
	if f == nil {
		f = codec.WASMFactory(codecName, asset.DefaultResolvers())
	}
	factory = f
	factoryMu.Unlock()
	_ = loader.Reset(context.Background())
}

func adapter() bridge.Adapter {
	return bridge.Adapter{Name: codecName, Loader: loader, Factory: loadModule}
}

// Encoder is a reusable encode function bound to one dispatch mode.
type Encoder struct {
	bridge *bridge.Bridge
}

func NewEncoder(mode squooshkit.Mode, opts ...bridge.Option) (*Encoder, error) {
	br, err := bridge.New(adapter(), mode, opts...)
	if err != nil {
		return nil, err
	}
	return &Encoder{bridge: br}, nil
}

func (e *Encoder) Encode(ctx context.Context, img *squooshkit.ImageBuffer, opts *Options) ([]byte, error) {
	merged := DefaultOptions()
	if opts != nil {
		merged = *opts
	}
	if err := merged.validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	res, err := e.bridge.Dispatch(ctx, protocol.OpEncode, &protocol.Payload{Image: img, Options: merged.pack()})
	if err != nil {
		return nil, err
	}
	return res.Bytes, nil
}

func (e *Encoder) Terminate(ctx context.Context) error {
	return e.bridge.Terminate(ctx)
}

// Decoder is a reusable decode function bound to one dispatch mode.
type Decoder struct {
	bridge *bridge.Bridge
}

func NewDecoder(mode squooshkit.Mode, opts ...bridge.Option) (*Decoder, error) {
	br, err := bridge.New(adapter(), mode, opts...)
	if err != nil {
		return nil, err
	}
	return &Decoder{bridge: br}, nil
}

func (d *Decoder) Decode(ctx context.Context, data []byte) (*squooshkit.ImageBuffer, error) {
	if len(data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "no input bytes")
	}
	res, err := d.bridge.Dispatch(ctx, protocol.OpDecode, &protocol.Payload{Data: data})
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

func (d *Decoder) Terminate(ctx context.Context) error {
	return d.bridge.Terminate(ctx)
}

// Encode is the one-shot form: it allocates its own worker-mode bridge and
// releases it when the call settles.
func Encode(ctx context.Context, img *squooshkit.ImageBuffer, opts *Options) ([]byte, error) {
	enc, err := NewEncoder(squooshkit.ModeWorker)
	if err != nil {
		return nil, err
	}
	defer enc.Terminate(context.WithoutCancel(ctx))
	return enc.Encode(ctx, img, opts)
}

// Decode is the one-shot form of Decoder.Decode.
func Decode(ctx context.Context, data []byte) (*squooshkit.ImageBuffer, error) {
	dec, err := NewDecoder(squooshkit.ModeWorker)
	if err != nil {
		return nil, err
	}
	defer dec.Terminate(context.WithoutCancel(ctx))
	return dec.Decode(ctx, data)
}
