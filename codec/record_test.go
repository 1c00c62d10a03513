package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestOptionRecord_Layout(t *testing.T) {
	var r OptionRecord
	r.PutInt(75)
	r.PutInt(-1)
	r.PutBool(true)
	r.PutBool(false)
	r.PutFloat(0.5)

	if r.Len() != 20 {
		t.Fatalf("packed length = %d, want 20", r.Len())
	}

	want := make([]byte, 0, 20)
	want = binary.LittleEndian.AppendUint32(want, 75)
	want = binary.LittleEndian.AppendUint32(want, 0xffffffff)
	want = binary.LittleEndian.AppendUint32(want, 1)
	want = binary.LittleEndian.AppendUint32(want, 0)
	want = binary.LittleEndian.AppendUint32(want, math.Float32bits(0.5))

	if !bytes.Equal(r.Bytes(), want) {
		t.Errorf("record = %x, want %x", r.Bytes(), want)
	}

	rd := NewRecordReader(r.Bytes())
	if v := rd.Int(); v != 75 {
		t.Errorf("first slot = %d, want 75", v)
	}
	if v := rd.Int(); v != -1 {
		t.Errorf("second slot = %d, want -1", v)
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates("webp", false)
	if len(got) != 1 || got[0] != "webp.wasm" {
		t.Errorf("baseline candidates = %v", got)
	}

	got = Candidates("webp", true)
	if len(got) != 2 || got[0] != "webp-mt.wasm" || got[1] != "webp.wasm" {
		t.Errorf("threaded candidates = %v", got)
	}
}

func TestIsModule(t *testing.T) {
	if !IsModule([]byte("\x00asm\x01\x00\x00\x00")) {
		t.Error("valid magic rejected")
	}
	if IsModule([]byte("RIFF")) {
		t.Error("non-wasm accepted")
	}
	if IsModule([]byte{0x00}) {
		t.Error("short input accepted")
	}
}
