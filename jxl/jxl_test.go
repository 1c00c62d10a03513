package jxl

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec/codectest"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

func testImage(w, h int) *squooshkit.ImageBuffer {
	return &squooshkit.ImageBuffer{Data: make([]byte, w*h*4), Width: w, Height: h}
}

func TestEncode_FakeModule(t *testing.T) {
	mod := &codectest.Module{}
	SetModuleFactory(codectest.Factory(mod, nil))
	defer SetModuleFactory(nil)

	out, err := Encode(context.Background(), testImage(3, 2), &Options{Effort: 7, Quality: 90, Epf: -1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, []byte("encoded")) {
		t.Fatalf("unexpected output %q", out)
	}

	calls := mod.Calls()
	if len(calls) != 1 {
		t.Fatalf("module called %d times, want 1", len(calls))
	}
	// Eight option slots in declared field order.
	if got := len(calls[0].Payload.Options); got != 8*4 {
		t.Fatalf("option record length %d, want %d", got, 8*4)
	}
}

func TestEncode_RejectsOutOfRangeBeforeLoad(t *testing.T) {
	var loads atomic.Int32
	SetModuleFactory(codectest.Factory(&codectest.Module{}, &loads))
	defer SetModuleFactory(nil)

	bad := []Options{
		{Effort: 10},
		{Quality: 101},
		{Epf: -2},
		{DecodingSpeedTier: 5},
		{PhotonNoiseISO: -1},
	}
	for _, opts := range bad {
		_, err := Encode(context.Background(), testImage(1, 1), &opts)
		if err == nil {
			t.Fatalf("options %+v accepted, want rejection", opts)
		}
		if !errors.StdIs(err, &errors.Error{Phase: errors.PhaseValidate, Kind: errors.KindOutOfRange}) {
			t.Fatalf("options %+v: got %v, want out-of-range validation error", opts, err)
		}
	}
	if n := loads.Load(); n != 0 {
		t.Fatalf("module loaded %d times during validation failures, want 0", n)
	}
}

func TestDecode_FakeModule(t *testing.T) {
	SetModuleFactory(codectest.Factory(&codectest.Module{}, nil))
	defer SetModuleFactory(nil)

	img, err := Decode(context.Background(), []byte{0xff, 0x0a})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 1 || img.Height != 1 {
		t.Fatalf("got %dx%d, want 1x1", img.Width, img.Height)
	}
}

func TestEncoder_ReuseAcrossCalls(t *testing.T) {
	var loads atomic.Int32
	SetModuleFactory(codectest.Factory(&codectest.Module{}, &loads))
	defer SetModuleFactory(nil)

	enc, err := NewEncoder(squooshkit.ModeWorker)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Terminate(context.Background())

	for i := 0; i < 3; i++ {
		if _, err := enc.Encode(context.Background(), testImage(1, 1), nil); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
	}
	if n := loads.Load(); n != 1 {
		t.Fatalf("module loaded %d times across reuse, want 1", n)
	}
}
