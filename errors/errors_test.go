package errors

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindOutOfRange,
				Codec:  "webp",
				Op:     "encode",
				Path:   []string{"quality"},
				Detail: "quality must be in [0, 100], got 101",
			},
			contains: []string{"[validate]", "out_of_range", "webp/encode", "quality", "got 101"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDispatch,
				Kind:  KindAborted,
			},
			contains: []string{"[dispatch]", "aborted"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseWorker,
				Kind:   KindWorkerStart,
				Detail: "worker failed during startup",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[worker]", "worker_start", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("message %q missing %q", msg, s)
				}
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := CodecFailure("avif", "encode")

	if !errors.Is(err, &Error{Phase: PhaseCodec, Kind: KindCodecFailure}) {
		t.Error("expected match on same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseCodec, Kind: KindAborted}) {
		t.Error("unexpected match on different kind")
	}
	if errors.Is(err, &Error{Phase: PhaseWorker, Kind: KindCodecFailure}) {
		t.Error("unexpected match on different phase")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseCodec, KindCodecFailure, cause, "module load failed")

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseValidate, KindInvalidInput).
		Path("data").
		Codec("jxl").
		Value(12).
		Detail("image data is %d bytes", 12).
		Build()

	if err.Phase != PhaseValidate || err.Kind != KindInvalidInput {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Value != 12 {
		t.Errorf("value = %v", err.Value)
	}
	if !strings.Contains(err.Error(), "12 bytes") {
		t.Errorf("detail missing from message: %q", err.Error())
	}
}

func TestIsAborted(t *testing.T) {
	if !IsAborted(Aborted(PhaseDispatch, nil)) {
		t.Error("expected IsAborted for aborted error")
	}
	if !IsAborted(Wrap(PhaseCodec, KindCodecFailure, Aborted(PhaseDispatch, nil), "wrapped")) {
		t.Error("expected IsAborted to see through wrapping")
	}
	if IsAborted(errors.New("plain")) {
		t.Error("plain error must not be aborted")
	}
}

func TestWorkerCreation_ListsAttempts(t *testing.T) {
	err := WorkerCreation("webp", []string{"wasm/webp-mt.wasm", "wasm/webp.wasm"}, nil)
	msg := err.Error()
	for _, attempt := range []string{"wasm/webp-mt.wasm", "wasm/webp.wasm"} {
		if !strings.Contains(msg, attempt) {
			t.Errorf("message %q missing attempted path %q", msg, attempt)
		}
	}
}

func TestWorkerTimeout_NamesDuration(t *testing.T) {
	err := WorkerTimeout(10 * time.Second)
	if !strings.Contains(err.Error(), "10s") {
		t.Errorf("message %q missing timeout", err.Error())
	}
}
