package resize

import (
	"context"
	"sync/atomic"
	"testing"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/codec/codectest"
)

func solidImage(w, h int, r, g, b, a byte) *squooshkit.ImageBuffer {
	data := make([]byte, w*h*4)
	for i := 0; i < len(data); i += 4 {
		data[i] = r
		data[i+1] = g
		data[i+2] = b
		data[i+3] = a
	}
	return &squooshkit.ImageBuffer{Data: data, Width: w, Height: h}
}

func useNativeModule(t *testing.T, loads *atomic.Int32) {
	t.Helper()
	SetModuleFactory(codectest.Factory(newNativeModule(), loads))
	t.Cleanup(func() { SetModuleFactory(nil) })
}

func TestPlanDimensions(t *testing.T) {
	cases := []struct {
		name         string
		srcW, srcH   int
		opts         Options
		wantW, wantH int
	}{
		{"width only", 1920, 1080, Options{Width: 960}, 960, 540},
		{"height only", 1920, 1080, Options{Height: 540}, 960, 540},
		{"both given", 1920, 1080, Options{Width: 100, Height: 100}, 100, 100},
		{"rounds to nearest", 100, 30, Options{Width: 50}, 50, 15},
		{"extreme ratio clamps to one", 1921, 1080, Options{Width: 1}, 1, 1},
		{"tall source", 1080, 1921, Options{Height: 1}, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h, err := PlanDimensions(tc.srcW, tc.srcH, &tc.opts)
			if err != nil {
				t.Fatalf("PlanDimensions: %v", err)
			}
			if w != tc.wantW || h != tc.wantH {
				t.Fatalf("got %dx%d, want %dx%d", w, h, tc.wantW, tc.wantH)
			}
			if w < 1 || h < 1 {
				t.Fatalf("dimensions must stay positive, got %dx%d", w, h)
			}
		})
	}
}

func TestPlanDimensions_BothZero(t *testing.T) {
	if _, _, err := PlanDimensions(100, 100, &Options{}); err == nil {
		t.Fatal("expected error when neither dimension is given")
	}
	if _, _, err := PlanDimensions(100, 100, nil); err == nil {
		t.Fatal("expected error for nil options")
	}
}

func TestResize_HalvesImage(t *testing.T) {
	useNativeModule(t, nil)

	rz, err := NewResizer(squooshkit.ModeClient)
	if err != nil {
		t.Fatalf("NewResizer: %v", err)
	}

	out, err := rz.Resize(context.Background(), solidImage(1920, 1080, 10, 20, 30, 255), &Options{Width: 960})
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Width != 960 || out.Height != 540 {
		t.Fatalf("got %dx%d, want 960x540", out.Width, out.Height)
	}
	if len(out.Data) != 960*540*4 {
		t.Fatalf("output length %d, want %d", len(out.Data), 960*540*4)
	}
	// A solid source stays solid through any filter, modulo fixed-point
	// rounding inside the resampler.
	want := []byte{10, 20, 30, 255}
	for i, v := range out.Data[:4] {
		d := int(v) - int(want[i])
		if d < -1 || d > 1 {
			t.Fatalf("leading pixel %v, want %v within 1", out.Data[:4], want)
		}
	}
}

func TestResize_ExtremeAspectKeepsOnePixel(t *testing.T) {
	useNativeModule(t, nil)

	rz, err := NewResizer(squooshkit.ModeClient)
	if err != nil {
		t.Fatalf("NewResizer: %v", err)
	}

	out, err := rz.Resize(context.Background(), solidImage(1921, 2, 1, 2, 3, 255), &Options{Width: 1})
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Width != 1 || out.Height < 1 {
		t.Fatalf("got %dx%d, want width 1 and height >= 1", out.Width, out.Height)
	}
}

func TestResize_WorkerMode(t *testing.T) {
	useNativeModule(t, nil)

	rz, err := NewResizer(squooshkit.ModeWorker)
	if err != nil {
		t.Fatalf("NewResizer: %v", err)
	}
	defer rz.Terminate(context.Background())

	src := solidImage(8, 4, 200, 100, 50, 255)
	out, err := rz.Resize(context.Background(), src, &Options{Width: 4, Method: MethodTriangle})
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Width != 4 || out.Height != 2 {
		t.Fatalf("got %dx%d, want 4x2", out.Width, out.Height)
	}
	if src.Data != nil {
		t.Fatal("worker dispatch should detach the caller's buffer")
	}
}

func TestResize_RejectsBeforeLoad(t *testing.T) {
	var loads atomic.Int32
	useNativeModule(t, &loads)

	rz, err := NewResizer(squooshkit.ModeClient)
	if err != nil {
		t.Fatalf("NewResizer: %v", err)
	}

	bad := []Options{
		{},
		{Width: -1},
		{Height: -4},
		{Width: 10, Method: Method("nearest")},
	}
	for _, opts := range bad {
		if _, err := rz.Resize(context.Background(), solidImage(4, 4, 0, 0, 0, 255), &opts); err == nil {
			t.Fatalf("options %+v accepted, want rejection", opts)
		}
	}
	if n := loads.Load(); n != 0 {
		t.Fatalf("module loaded %d times during validation failures, want 0", n)
	}
}

func TestResize_Aborted(t *testing.T) {
	useNativeModule(t, nil)

	rz, err := NewResizer(squooshkit.ModeClient)
	if err != nil {
		t.Fatalf("NewResizer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rz.Resize(ctx, solidImage(4, 4, 0, 0, 0, 255), &Options{Width: 2}); err == nil {
		t.Fatal("expected abort error for cancelled context")
	}
}

func TestPack_ResolvedRecord(t *testing.T) {
	opts := DefaultOptions()
	b := pack(960, 540, &opts)
	if len(b) != 5*4 {
		t.Fatalf("record length %d, want %d", len(b), 5*4)
	}
	rd := codec.NewRecordReader(b)
	if w := rd.Int(); w != 960 {
		t.Fatalf("width slot %d, want 960", w)
	}
	if h := rd.Int(); h != 540 {
		t.Fatalf("height slot %d, want 540", h)
	}
	if m := rd.Int(); m != methodIndex[MethodLanczos3] {
		t.Fatalf("method slot %d, want %d", m, methodIndex[MethodLanczos3])
	}
	if !rd.Bool() || !rd.Bool() {
		t.Fatal("premultiply and linear flags should default to true")
	}
}
