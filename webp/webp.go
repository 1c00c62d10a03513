// Package webp encodes and decodes WebP images through the prebuilt WebP
// codec module.
package webp

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

const codecName = "webp"

// Options mirror the native WebP encoder configuration. Start from
// DefaultOptions and change what you need; the zero value is not a valid
// configuration.
type Options struct {
	Quality          int // [0, 100]
	TargetSize       int // bytes, 0 disables
	TargetPSNR       float32
	Method           int // [0, 6], quality/speed trade-off
	SNSStrength      int // [0, 100]
	FilterStrength   int // [0, 100]
	FilterSharpness  int // [0, 7]
	FilterType       int // [0, 1]
	Partitions       int // [0, 3]
	Segments         int // [1, 4]
	Pass             int // [1, 10]
	ShowCompressed   bool
	Preprocessing    int // [0, 2]
	AutoFilter       bool
	PartitionLimit   int // [0, 100]
	AlphaCompression bool
	AlphaFiltering   int // [0, 2]
	AlphaQuality     int // [0, 100]
	Lossless         bool
	Exact            bool
	ImageHint        int // [0, 3]
	EmulateJPEGSize  bool
	ThreadLevel      int
	LowMemory        bool
	NearLossless     int // [0, 100]
	UseDeltaPalette  bool
	UseSharpYUV      bool
}

// DefaultOptions returns the encoder defaults.
func DefaultOptions() Options {
	return Options{
		Quality:          75,
		Method:           4,
		SNSStrength:      50,
		FilterStrength:   60,
		FilterType:       1,
		Segments:         4,
		Pass:             1,
		AlphaCompression: true,
		AlphaFiltering:   1,
		AlphaQuality:     100,
		NearLossless:     100,
	}
}

func (o *Options) validate() error {
	ranges := []struct {
		field  string
		value  int
		lo, hi int
	}{
		{"quality", o.Quality, 0, 100},
		{"method", o.Method, 0, 6},
		{"sns_strength", o.SNSStrength, 0, 100},
		{"filter_strength", o.FilterStrength, 0, 100},
		{"filter_sharpness", o.FilterSharpness, 0, 7},
		{"filter_type", o.FilterType, 0, 1},
		{"partitions", o.Partitions, 0, 3},
		{"segments", o.Segments, 1, 4},
		{"pass", o.Pass, 1, 10},
		{"preprocessing", o.Preprocessing, 0, 2},
		{"partition_limit", o.PartitionLimit, 0, 100},
		{"alpha_filtering", o.AlphaFiltering, 0, 2},
		{"alpha_quality", o.AlphaQuality, 0, 100},
		{"image_hint", o.ImageHint, 0, 3},
		{"near_lossless", o.NearLossless, 0, 100},
	}
	for _, r := range ranges {
		if r.value < r.lo || r.value > r.hi {
			return errors.OutOfRange(r.field, r.value, r.lo, r.hi)
		}
	}
	if o.TargetSize < 0 {
		return errors.OutOfRange("target_size", o.TargetSize, 0, 1<<31-1)
	}
	return nil
}

// pack serializes the record in the module's declared field order.
func (o *Options) pack() []byte {
	var r codec.OptionRecord
	r.PutInt(o.Quality)
	r.PutInt(o.TargetSize)
	r.PutFloat(o.TargetPSNR)
	r.PutInt(o.Method)
	r.PutInt(o.SNSStrength)
	r.PutInt(o.FilterStrength)
	r.PutInt(o.FilterSharpness)
	r.PutInt(o.FilterType)
	r.PutInt(o.Partitions)
	r.PutInt(o.Segments)
	r.PutInt(o.Pass)
	r.PutBool(o.ShowCompressed)
	r.PutInt(o.Preprocessing)
	r.PutBool(o.AutoFilter)
	r.PutInt(o.PartitionLimit)
	r.PutBool(o.AlphaCompression)
	r.PutInt(o.AlphaFiltering)
	r.PutInt(o.AlphaQuality)
	r.PutBool(o.Lossless)
	r.PutBool(o.Exact)
	r.PutInt(o.ImageHint)
	r.PutBool(o.EmulateJPEGSize)
	r.PutInt(o.ThreadLevel)
	r.PutBool(o.LowMemory)
	r.PutInt(o.NearLossless)
	r.PutBool(o.UseDeltaPalette)
	r.PutBool(o.UseSharpYUV)
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
// Intended for tests and for callers embedding their own binaries.
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

// Encoder is a reusable encode function bound to one dispatch mode. It
// keeps one bridge (and in worker mode, one worker) until Terminate.
type Encoder struct {
	bridge *bridge.Bridge
}

// NewEncoder creates an encoder with the dispatch mode fixed for its
// lifetime.
func NewEncoder(mode squooshkit.Mode, opts ...bridge.Option) (*Encoder, error) {
	br, err := bridge.New(adapter(), mode, opts...)
	if err != nil {
		return nil, err
	}
	return &Encoder{bridge: br}, nil
}

// Encode compresses img to WebP bytes. A nil opts uses DefaultOptions.
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

// Terminate releases the encoder's worker. The encoder remains usable; the
// next call creates a fresh worker.
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

// Decode expands WebP bytes into an RGBA image.
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
// releases it when the call settles. Repeated calls never reuse a worker;
// use NewEncoder for that.
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
