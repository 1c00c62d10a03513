// Package resize resamples RGBA images. The heavy lifting is done by the
// prebuilt resize module when one is available; otherwise a native baseline
// takes over, so resizing works without any WASM assets installed.
package resize

import (
	"context"
	"math"
	"sync"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/asset"
	"github.com/bnowak008/squoosh-kit-sub000/bridge"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

const codecName = "resize"

// Method selects the resampling filter.
type Method string

const (
	MethodTriangle Method = "triangle"
	MethodCatrom   Method = "catrom"
	MethodMitchell Method = "mitchell"
	MethodLanczos3 Method = "lanczos3"
)

var methodIndex = map[Method]int{
	MethodTriangle: 0,
	MethodCatrom:   1,
	MethodMitchell: 2,
	MethodLanczos3: 3,
}

// Options select the target size and filter. At least one of Width and
// Height must be positive; a missing side is derived from the source aspect
// ratio. Start from DefaultOptions when the premultiply and linear-light
// defaults are wanted; a zero Options leaves both off.
type Options struct {
	Width       int
	Height      int
	Method      Method
	Premultiply bool
	LinearRGB   bool
}

func DefaultOptions() Options {
	return Options{
		Method:      MethodLanczos3,
		Premultiply: true,
		LinearRGB:   true,
	}
}

func (o *Options) validate() error {
	if o.Width <= 0 && o.Height <= 0 {
		return errors.InvalidInput(errors.PhaseValidate, "at least one of width and height must be positive")
	}
	if o.Width < 0 {
		return errors.OutOfRange("width", o.Width, 0, math.MaxInt32)
	}
	if o.Height < 0 {
		return errors.OutOfRange("height", o.Height, 0, math.MaxInt32)
	}
	if _, ok := methodIndex[o.Method]; !ok {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("method").
			Value(string(o.Method)).
			Detail("unknown method %q", o.Method).
			Build()
	}
	return nil
}

// PlanDimensions resolves the target size against a source image. A missing
// side is derived by preserving the aspect ratio and rounding to nearest,
// clamped to at least 1 pixel so extreme ratios never collapse to zero.
func PlanDimensions(srcW, srcH int, opts *Options) (int, int, error) {
	if opts == nil || (opts.Width <= 0 && opts.Height <= 0) {
		return 0, 0, errors.InvalidInput(errors.PhaseValidate, "at least one of width and height must be positive")
	}

	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = int(math.Round(float64(srcW) * float64(h) / float64(srcH)))
	}
	if opts.Height <= 0 {
		h = int(math.Round(float64(srcH) * float64(w) / float64(srcW)))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// pack serializes the record with the target dimensions already resolved.
func pack(w, h int, o *Options) []byte {
	var r codec.OptionRecord
	r.PutInt(w)
	r.PutInt(h)
	r.PutInt(methodIndex[o.Method])
	r.PutBool(o.Premultiply)
	r.PutBool(o.LinearRGB)
	return r.Bytes()
}

var (
	factoryMu sync.Mutex
	factory   codec.Factory = defaultFactory
	loader                  = codec.NewLoader(loadModule)
)

// defaultFactory prefers the WASM builds and falls back to the native
// baseline when no binary can be located.
func defaultFactory(ctx context.Context) (codec.Module, error) {
	mod, err := codec.WASMFactory(codecName, asset.DefaultResolvers())(ctx)
	if err == nil {
		return mod, nil
	}
	if errors.StdIs(err, &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindNotFound}) {
		return newNativeModule(), nil
	}
	return nil, err
}

func loadModule(ctx context.Context) (codec.Module, error) {
	factoryMu.Lock()
	f := factory
	factoryMu.Unlock()
	return f(ctx)
}

// SetModuleFactory replaces how the resize module is obtained and resets
// the cached singleton. Pass nil to restore the default chain.
func SetModuleFactory(f codec.Factory) {
	factoryMu.Lock()
	if f == nil {
		f = defaultFactory
	}
	factory = f
	factoryMu.Unlock()
	_ = loader.Reset(context.Background())
}

func adapter() bridge.Adapter {
	return bridge.Adapter{Name: codecName, Loader: loader, Factory: loadModule}
}

// Resizer is a reusable resize function bound to one dispatch mode.
type Resizer struct {
	bridge *bridge.Bridge
}

func NewResizer(mode squooshkit.Mode, opts ...bridge.Option) (*Resizer, error) {
	br, err := bridge.New(adapter(), mode, opts...)
	if err != nil {
		return nil, err
	}
	return &Resizer{bridge: br}, nil
}

// Resize resamples img to the target size in opts. Unlike the encoders,
// opts has no useful zero default: the target size is required.
func (r *Resizer) Resize(ctx context.Context, img *squooshkit.ImageBuffer, opts *Options) (*squooshkit.ImageBuffer, error) {
	merged := DefaultOptions()
	if opts != nil {
		merged = *opts
		if merged.Method == "" {
			merged.Method = MethodLanczos3
		}
	}
	if err := merged.validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	w, h, err := PlanDimensions(img.Width, img.Height, &merged)
	if err != nil {
		return nil, err
	}

	res, err := r.bridge.Dispatch(ctx, protocol.OpResize, &protocol.Payload{Image: img, Options: pack(w, h, &merged)})
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Terminate releases the resizer's worker. The resizer remains usable.
func (r *Resizer) Terminate(ctx context.Context) error {
	return r.bridge.Terminate(ctx)
}

// Resize is the one-shot form: it allocates its own worker-mode bridge and
// releases it when the call settles.
func Resize(ctx context.Context, img *squooshkit.ImageBuffer, opts *Options) (*squooshkit.ImageBuffer, error) {
	rz, err := NewResizer(squooshkit.ModeWorker)
	if err != nil {
		return nil, err
	}
	defer rz.Terminate(context.WithoutCancel(ctx))
	return rz.Resize(ctx, img, opts)
}
