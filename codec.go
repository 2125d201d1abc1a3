// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"encoding/binary"
)

// decoder is a cursor-based big-endian field reader over a ByteSource. It
// plays the role of the teacher's structUnpack helper, generalised to the
// version-parameterised (32- vs 64-bit offset) record layouts this format
// needs (spec.md §4.2).
type decoder struct {
	src ByteSource
	off int64
	v3  bool
	err error
}

func newDecoder(src ByteSource, off int64, v3 bool) *decoder {
	return &decoder{src: src, off: off, v3: v3}
}

func (d *decoder) pos() int64 { return d.off }

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) read(n int64) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	if err := d.src.ReadInto(buf, d.off); err != nil {
		d.fail(err)
		return make([]byte, n)
	}
	d.off += n
	return buf
}

func (d *decoder) u8() uint8 {
	b := d.read(1)
	return b[0]
}

func (d *decoder) u16() uint16 {
	return binary.BigEndian.Uint16(d.read(2))
}

func (d *decoder) u32() uint32 {
	return binary.BigEndian.Uint32(d.read(4))
}

func (d *decoder) u64() uint64 {
	return binary.BigEndian.Uint64(d.read(8))
}

func (d *decoder) i32() int32 { return int32(d.u32()) }
func (d *decoder) i64() int64 { return int64(d.u64()) }

// offsetField reads a version-dependent absolute offset field, sign
// extending so that the "no value" sentinel -1 round-trips correctly
// regardless of field width.
func (d *decoder) offsetField() int64 {
	if d.v3 {
		return d.i64()
	}
	return int64(int32(d.u32()))
}

// str reads up to maxLen bytes and returns the portion before the first
// NUL byte (spec.md §3.2 string field kind).
func (d *decoder) str(maxLen int) string {
	b := d.read(int64(maxLen))
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// skip advances the cursor by n bytes without reading, used for
// unused/reserved fields.
func (d *decoder) skip(n int64) {
	d.off += n
}

// u32Table reads a table field whose element count was computed by the
// caller from an earlier field in the same record.
func (d *decoder) u32Table(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = d.u32()
	}
	return out
}

func (d *decoder) i32Table(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = d.i32()
	}
	return out
}

func (d *decoder) offsetTable(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = d.offsetField()
	}
	return out
}

// encoder accumulates the big-endian serialised bytes of a record body,
// mirroring decoder but for the write path (spec.md §4.2 encode).
type encoder struct {
	v3  bool
	buf bytes.Buffer
}

func newEncoder(v3 bool) *encoder { return &encoder{v3: v3} }

func (e *encoder) bytes() []byte { return e.buf.Bytes() }
func (e *encoder) len() int64    { return int64(e.buf.Len()) }

func (e *encoder) putU16(v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) putU32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) putU64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) putI32(v int32)  { e.putU32(uint32(v)) }
func (e *encoder) putI64(v int64)  { e.putU64(uint64(v)) }

// putOffset writes a version-dependent absolute offset field.
func (e *encoder) putOffset(v int64) {
	if e.v3 {
		e.putI64(v)
	} else {
		e.putI32(int32(v))
	}
}

// putStr writes s truncated/zero-padded to exactly maxLen bytes, NUL
// terminated and NUL padded (spec.md §3.2).
func (e *encoder) putStr(s string, maxLen int) {
	b := make([]byte, maxLen)
	n := copy(b, s)
	if n == maxLen && maxLen > 0 {
		b[maxLen-1] = 0
	}
	e.buf.Write(b)
}

func (e *encoder) putZero(n int) {
	e.buf.Write(make([]byte, n))
}

func (e *encoder) putU32Table(v []uint32) {
	for _, x := range v {
		e.putU32(x)
	}
}

func (e *encoder) putI32Table(v []int32) {
	for _, x := range v {
		e.putI32(x)
	}
}

