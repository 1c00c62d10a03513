package squooshkit

import (
	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

// ImageBuffer is raw RGBA8 pixel data plus its dimensions. Data holds at
// least Width*Height*4 bytes, rows in top-to-bottom order with no padding.
type ImageBuffer struct {
	Data   []byte
	Width  int
	Height int
}

// Validate checks the buffer shape. It is called by every operation before
// any module or worker interaction so malformed input fails fast on the
// caller side.
func (b *ImageBuffer) Validate() error {
	if b == nil {
		return errors.InvalidInput(errors.PhaseValidate, "image must not be nil")
	}
	if b.Data == nil {
		return errors.InvalidInput(errors.PhaseValidate, "image data must not be nil")
	}
	if b.Width <= 0 {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("width").
			Value(b.Width).
			Detail("width must be a positive integer, got %d", b.Width).
			Build()
	}
	if b.Height <= 0 {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("height").
			Value(b.Height).
			Detail("height must be a positive integer, got %d", b.Height).
			Build()
	}
	need := b.Width * b.Height * 4
	if need/4/b.Width != b.Height {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("image dimensions %dx%d overflow", b.Width, b.Height).
			Build()
	}
	if len(b.Data) < need {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("data").
			Detail("image data is %d bytes, need at least %d for %dx%d RGBA", len(b.Data), need, b.Width, b.Height).
			Build()
	}
	return nil
}

// Detach hands ownership of the pixel data to the caller and invalidates the
// buffer: after Detach, b.Data is nil and b must not be used for further
// operations. This models a structured-clone transfer to a worker; there is
// exactly one owner of the backing storage at any time.
func (b *ImageBuffer) Detach() []byte {
	data := b.Data
	b.Data = nil
	return data
}

// Clone returns a deep copy with its own backing storage.
func (b *ImageBuffer) Clone() ImageBuffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return ImageBuffer{Data: data, Width: b.Width, Height: b.Height}
}
