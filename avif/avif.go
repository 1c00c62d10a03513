// Package avif encodes and decodes AVIF images through the prebuilt AVIF
// codec module.
package avif

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

const codecName = "avif"

// Options mirror the native AVIF encoder configuration. CQLevel is the main
// quality knob: 0 is best quality, 63 smallest output.
type Options struct {
	CQLevel      int // [0, 63]
	CQAlphaLevel int // [-1, 63], -1 follows CQLevel
	DenoiseLevel int // [0, 50]
	TileColsLog2 int // [0, 6]
	TileRowsLog2 int // [0, 6]
	Speed        int // [0, 10], 0 slowest
	Subsample    int // [0, 3]
	ChromaDeltaQ bool
	Sharpness    int // [0, 7]
	Tune         int // [0, 2]
}

func DefaultOptions() Options {
	return Options{
		CQLevel:      33,
		CQAlphaLevel: -1,
		Speed:        6,
		Subsample:    1,
	}
}

func (o *Options) validate() error {
	ranges := []struct {
		field  string
		value  int
		lo, hi int
	}{
		{"cq_level", o.CQLevel, 0, 63},
		{"cq_alpha_level", o.CQAlphaLevel, -1, 63},
		{"denoise_level", o.DenoiseLevel, 0, 50},
		{"tile_cols_log2", o.TileColsLog2, 0, 6},
		{"tile_rows_log2", o.TileRowsLog2, 0, 6},
		{"speed", o.Speed, 0, 10},
		{"subsample", o.Subsample, 0, 3},
		{"sharpness", o.Sharpness, 0, 7},
		{"tune", o.Tune, 0, 2},
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
	r.PutInt(o.CQLevel)
	r.PutInt(o.CQAlphaLevel)
	r.PutInt(o.DenoiseLevel)
	r.PutInt(o.TileColsLog2)
	r.PutInt(o.TileRowsLog2)
	r.PutInt(o.Speed)
	r.PutInt(o.Subsample)
	r.PutBool(o.ChromaDeltaQ)
	r.PutInt(o.Sharpness)
	r.PutInt(o.Tune)
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
