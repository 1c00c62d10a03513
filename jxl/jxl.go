// Package jxl encodes and decodes JPEG XL images through the prebuilt
// JPEG XL codec module.
package jxl

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

const codecName = "jxl"

// Options mirror the native JPEG XL encoder configuration.
type Options struct {
	Effort            int // [0, 9], higher is slower and denser
	Quality           int // [0, 100]
	Progressive       bool
	Epf               int // [-1, 3], -1 auto
	LossyPalette      bool
	DecodingSpeedTier int // [0, 4]
	PhotonNoiseISO    float32
	LossyModular      bool
}

func DefaultOptions() Options {
	return Options{
		Effort:  1,
		Quality: 75,
		Epf:     -1,
	}
}

func (o *Options) validate() error {
	ranges := []struct {
		field  string
		value  int
		lo, hi int
	}{
		{"effort", o.Effort, 0, 9},
		{"quality", o.Quality, 0, 100},
		{"epf", o.Epf, -1, 3},
		{"decoding_speed_tier", o.DecodingSpeedTier, 0, 4},
	}
	for _, r := range ranges {
		if r.value < r.lo || r.value > r.hi {
			return errors.OutOfRange(r.field, r.value, r.lo, r.hi)
		}
	}
	if o.PhotonNoiseISO < 0 {
		return errors.New(errors.PhaseValidate, errors.KindOutOfRange).
			Path("photon_noise_iso").
			Value(o.PhotonNoiseISO).
			Detail("photon_noise_iso must be >= 0, got %v", o.PhotonNoiseISO).
			Build()
	}
	return nil
}

func (o *Options) pack() []byte {
	var r codec.OptionRecord
	r.PutInt(o.Effort)
	r.PutInt(o.Quality)
	r.PutBool(o.Progressive)
	r.PutInt(o.Epf)
	r.PutBool(o.LossyPalette)
	r.PutInt(o.DecodingSpeedTier)
	r.PutFloat(o.PhotonNoiseISO)
	r.PutBool(o.LossyModular)
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
