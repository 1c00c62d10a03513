package resize

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	nfnt "github.com/nfnt/resize"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

// nativeModule resamples in-process. It reads the same packed option record
// as the WASM build, so callers cannot tell the two apart.
type nativeModule struct{}

func newNativeModule() codec.Module {
	return nativeModule{}
}

var nativeFilters = map[int]nfnt.InterpolationFunction{
	0: nfnt.Bilinear,
	1: nfnt.Bicubic,
	2: nfnt.MitchellNetravali,
	3: nfnt.Lanczos3,
}

func (nativeModule) Call(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	if op != protocol.OpResize {
		return nil, errors.CodecFailure(codecName, string(op))
	}
	if payload == nil || payload.Image == nil {
		return nil, errors.InvalidInput(errors.PhaseCodec, "resize requires an input image")
	}
	if err := payload.Image.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Aborted(errors.PhaseCodec, err)
	}

	rd := codec.NewRecordReader(payload.Options)
	w := rd.Int()
	h := rd.Int()
	filter, ok := nativeFilters[rd.Int()]
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseCodec, "unknown filter index")
	}
	if w < 1 || h < 1 {
		return nil, errors.InvalidInput(errors.PhaseCodec, "target dimensions must be positive")
	}

	src := &image.RGBA{
		Pix:    payload.Image.Data,
		Stride: payload.Image.Width * 4,
		Rect:   image.Rect(0, 0, payload.Image.Width, payload.Image.Height),
	}

	out := nfnt.Resize(uint(w), uint(h), src, filter)
	if err := ctx.Err(); err != nil {
		return nil, errors.Aborted(errors.PhaseCodec, err)
	}

	return &protocol.Result{Image: &squooshkit.ImageBuffer{
		Data:   rgbaPixels(out, w, h),
		Width:  w,
		Height: h,
	}}, nil
}

func (nativeModule) Close(ctx context.Context) error {
	return nil
}

// rgbaPixels flattens the resampled image into a tightly packed RGBA slice.
func rgbaPixels(img image.Image, w, h int) []byte {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 && rgba.Rect == image.Rect(0, 0, w, h) {
		return rgba.Pix
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if rgba, ok := img.(*image.RGBA); ok {
		draw.Draw(dst, dst.Rect, rgba, rgba.Rect.Min, draw.Src)
		return dst.Pix
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, y, color.RGBAModel.Convert(img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)))
		}
	}
	return dst.Pix
}
