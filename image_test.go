package squooshkit

import (
	"math"
	"strings"
	"testing"

	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

func TestImageBuffer_Validate(t *testing.T) {
	cases := []struct {
		name    string
		img     *ImageBuffer
		wantErr string
	}{
		{"nil buffer", nil, "image must not be nil"},
		{"nil data", &ImageBuffer{Width: 1, Height: 1}, "data must not be nil"},
		{"zero width", &ImageBuffer{Data: make([]byte, 4), Width: 0, Height: 1}, "width must be a positive integer"},
		{"negative height", &ImageBuffer{Data: make([]byte, 4), Width: 1, Height: -1}, "height must be a positive integer"},
		{"short data", &ImageBuffer{Data: make([]byte, 15), Width: 2, Height: 2}, "need at least 16"},
		{"overflow", &ImageBuffer{Data: make([]byte, 4), Width: math.MaxInt / 2, Height: math.MaxInt / 2}, "overflow"},
		{"exact fit", &ImageBuffer{Data: make([]byte, 16), Width: 2, Height: 2}, ""},
		{"oversized data ok", &ImageBuffer{Data: make([]byte, 32), Width: 2, Height: 2}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.img.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
			if !errors.StdIs(err, &errors.Error{Phase: errors.PhaseValidate, Kind: errors.KindInvalidInput}) {
				t.Fatalf("got %v, want invalid-input validation error", err)
			}
		})
	}
}

func TestImageBuffer_Detach(t *testing.T) {
	img := &ImageBuffer{Data: []byte{1, 2, 3, 4}, Width: 1, Height: 1}
	data := img.Detach()

	if img.Data != nil {
		t.Fatal("buffer still references its data after Detach")
	}
	if len(data) != 4 || data[0] != 1 {
		t.Fatalf("detached data %v, want original bytes", data)
	}
	if err := img.Validate(); err == nil {
		t.Fatal("detached buffer should no longer validate")
	}
}

func TestImageBuffer_Clone(t *testing.T) {
	img := &ImageBuffer{Data: []byte{9, 8, 7, 6}, Width: 1, Height: 1}
	cp := img.Clone()

	cp.Data[0] = 0
	if img.Data[0] != 9 {
		t.Fatal("clone shares backing storage with the original")
	}
	if cp.Width != 1 || cp.Height != 1 {
		t.Fatalf("clone dimensions %dx%d, want 1x1", cp.Width, cp.Height)
	}
}

func TestMode_Validate(t *testing.T) {
	if err := ModeWorker.Validate(); err != nil {
		t.Fatalf("worker mode: %v", err)
	}
	if err := ModeClient.Validate(); err != nil {
		t.Fatalf("client mode: %v", err)
	}
	if err := Mode("inline").Validate(); err == nil {
		t.Fatal("unknown mode accepted")
	}
	if err := Mode("").Validate(); err == nil {
		t.Fatal("empty mode accepted")
	}
}
