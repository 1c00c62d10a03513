package webp

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/codec/codectest"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

// containerModule mimics the opaque WebP module closely enough for framing
// assertions: encode wraps the pixel payload in a RIFF/WEBP container and
// records the dimensions, decode reads them back.
func containerModule() *codectest.Module {
	return &codectest.Module{
		CallFn: func(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
			switch op {
			case protocol.OpEncode:
				img := payload.Image
				chunk := make([]byte, 8)
				binary.LittleEndian.PutUint32(chunk[0:], uint32(img.Width))
				binary.LittleEndian.PutUint32(chunk[4:], uint32(img.Height))

				var buf bytes.Buffer
				buf.WriteString("RIFF")
				sizeAt := buf.Len()
				buf.Write(make([]byte, 4))
				buf.WriteString("WEBP")
				buf.WriteString("VP8 ")
				var chunkLen [4]byte
				binary.LittleEndian.PutUint32(chunkLen[:], uint32(len(chunk)))
				buf.Write(chunkLen[:])
				buf.Write(chunk)

				out := buf.Bytes()
				binary.LittleEndian.PutUint32(out[sizeAt:], uint32(len(out)-8))
				return &protocol.Result{Bytes: out}, nil

			case protocol.OpDecode:
				data := payload.Data
				if len(data) < 28 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
					return nil, errors.InvalidInput(errors.PhaseCodec, "not a WebP container")
				}
				w := int(binary.LittleEndian.Uint32(data[20:24]))
				h := int(binary.LittleEndian.Uint32(data[24:28]))
				return &protocol.Result{Image: &squooshkit.ImageBuffer{
					Data:   make([]byte, w*h*4),
					Width:  w,
					Height: h,
				}}, nil

			default:
				return nil, errors.InvalidInput(errors.PhaseCodec, "unsupported op")
			}
		},
	}
}

func useModule(t *testing.T, mod codec.Module, loads *atomic.Int32) {
	t.Helper()
	SetModuleFactory(codectest.Factory(mod, loads))
	t.Cleanup(func() { SetModuleFactory(nil) })
}

// redImage returns an opaque red RGBA image.
func redImage(w, h int) *squooshkit.ImageBuffer {
	data := make([]byte, w*h*4)
	for i := 0; i < len(data); i += 4 {
		data[i] = 0xff
		data[i+3] = 0xff
	}
	return &squooshkit.ImageBuffer{Data: data, Width: w, Height: h}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.Quality != 75 || o.Method != 4 || o.Lossless {
		t.Errorf("unexpected defaults: %+v", o)
	}
	if err := o.validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestOptions_PackedLength(t *testing.T) {
	o := DefaultOptions()
	if got := len(o.pack()); got != 27*4 {
		t.Errorf("packed record is %d bytes, want %d", got, 27*4)
	}
}

func TestEncode_RejectsOutOfRangeBeforeLoad(t *testing.T) {
	ctx := context.Background()

	var loads atomic.Int32
	useModule(t, &codectest.Module{}, &loads)

	enc, err := NewEncoder(squooshkit.ModeClient)
	if err != nil {
		t.Fatal(err)
	}

	for _, quality := range []int{-1, 101} {
		opts := DefaultOptions()
		opts.Quality = quality
		_, err := enc.Encode(ctx, redImage(2, 2), &opts)
		if !errors.StdIs(err, &errors.Error{Phase: errors.PhaseValidate, Kind: errors.KindOutOfRange}) {
			t.Errorf("quality %d: expected out_of_range, got %v", quality, err)
		}
	}
	if loads.Load() != 0 {
		t.Errorf("module loaded %d times before validation", loads.Load())
	}
}

func TestEncode_RejectsShortBufferBeforeLoad(t *testing.T) {
	ctx := context.Background()

	var loads atomic.Int32
	useModule(t, &codectest.Module{}, &loads)

	enc, err := NewEncoder(squooshkit.ModeClient)
	if err != nil {
		t.Fatal(err)
	}

	short := &squooshkit.ImageBuffer{Data: make([]byte, 15), Width: 2, Height: 2}
	if _, err := enc.Encode(ctx, short, nil); err == nil {
		t.Fatal("expected size-mismatch error")
	}
	if loads.Load() != 0 {
		t.Errorf("module loaded %d times for malformed image", loads.Load())
	}
}

func TestEncode_ContainerMarkers(t *testing.T) {
	ctx := context.Background()
	useModule(t, containerModule(), nil)

	enc, err := NewEncoder(squooshkit.ModeWorker)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Terminate(ctx)

	opts := DefaultOptions()
	opts.Quality = 90
	out, err := enc.Encode(ctx, redImage(2, 2), &opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("empty encode result")
	}
	if string(out[0:4]) != "RIFF" {
		t.Errorf("bytes 0-3 = %q, want RIFF", out[0:4])
	}
	if string(out[8:12]) != "WEBP" {
		t.Errorf("bytes 8-11 = %q, want WEBP", out[8:12])
	}
}

func TestRoundTrip_DimensionsPreserved(t *testing.T) {
	ctx := context.Background()
	useModule(t, containerModule(), nil)

	enc, err := NewEncoder(squooshkit.ModeClient)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewDecoder(squooshkit.ModeClient)
	if err != nil {
		t.Fatal(err)
	}

	out, err := enc.Encode(ctx, redImage(7, 3), nil)
	if err != nil {
		t.Fatal(err)
	}
	img, err := dec.Decode(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 7 || img.Height != 3 {
		t.Errorf("round trip produced %dx%d, want 7x3", img.Width, img.Height)
	}
}

func TestEncode_AbortBeforeAwait(t *testing.T) {
	useModule(t, containerModule(), nil)

	for _, mode := range []squooshkit.Mode{squooshkit.ModeClient, squooshkit.ModeWorker} {
		t.Run(string(mode), func(t *testing.T) {
			enc, err := NewEncoder(mode)
			if err != nil {
				t.Fatal(err)
			}
			defer enc.Terminate(context.Background())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := enc.Encode(ctx, redImage(2, 2), nil); !errors.IsAborted(err) {
				t.Fatalf("expected aborted, got %v", err)
			}
		})
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	useModule(t, containerModule(), nil)

	dec, err := NewDecoder(squooshkit.ModeClient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.Decode(context.Background(), nil); err == nil {
		t.Fatal("expected validation error for empty input")
	}
}
