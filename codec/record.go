package codec

import (
	"encoding/binary"
	"math"
)

// OptionRecord packs an option struct for the module boundary: a flat array
// of 32-bit little-endian slots appended in the codec's declared field
// order. Booleans are 0/1, floats are IEEE-754 bits. The module reads the
// record as a C struct of int32/float fields.
type OptionRecord struct {
	buf []byte
}

func (r *OptionRecord) slot(v uint32) {
	r.buf = binary.LittleEndian.AppendUint32(r.buf, v)
}

// PutInt appends a signed integer slot.
func (r *OptionRecord) PutInt(v int) {
	r.slot(uint32(int32(v)))
}

// PutFloat appends a float slot.
func (r *OptionRecord) PutFloat(v float32) {
	r.slot(math.Float32bits(v))
}

// PutBool appends a boolean slot.
func (r *OptionRecord) PutBool(v bool) {
	if v {
		r.slot(1)
	} else {
		r.slot(0)
	}
}

// Bytes returns the packed record.
func (r *OptionRecord) Bytes() []byte {
	return r.buf
}

// Len returns the packed size in bytes.
func (r *OptionRecord) Len() int {
	return len(r.buf)
}

// RecordReader walks a packed record slot by slot. Reading past the end
// yields zero values, mirroring how a module sees an undersized struct.
type RecordReader struct {
	buf []byte
	off int
}

func NewRecordReader(b []byte) *RecordReader {
	return &RecordReader{buf: b}
}

func (r *RecordReader) slot() uint32 {
	if r.off+4 > len(r.buf) {
		r.off = len(r.buf)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Int reads a signed integer slot.
func (r *RecordReader) Int() int {
	return int(int32(r.slot()))
}

// Float reads a float slot.
func (r *RecordReader) Float() float32 {
	return math.Float32frombits(r.slot())
}

// Bool reads a boolean slot.
func (r *RecordReader) Bool() bool {
	return r.slot() != 0
}
