// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"encoding/binary"
	"math"
)

// Values is a decoded variable or attribute-entry payload: a flat,
// contiguous buffer tagged with its primitive type (spec.md §3.1). Raw is
// always stored in native machine byte order (the "host order" the spec
// speaks of); the typed accessors below reinterpret it without copying the
// on-disk byte order into callers' hands.
type Values struct {
	Type Type
	Raw  []byte
}

// Len returns the element count (or, for string types, the raw byte
// length, matching the "last dimension is the string length" convention of
// spec.md §3.4 invariant 6).
func (v Values) Len() int {
	sz := v.Type.Size()
	if sz == 0 || v.Type.IsString() {
		return len(v.Raw)
	}
	return len(v.Raw) / sz
}

func (v Values) Int8() []int8 {
	out := make([]int8, len(v.Raw))
	for i, b := range v.Raw {
		out[i] = int8(b)
	}
	return out
}

func (v Values) Uint8() []uint8 {
	return append([]byte(nil), v.Raw...)
}

func (v Values) Int16() []int16 {
	n := len(v.Raw) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.NativeEndian.Uint16(v.Raw[i*2:]))
	}
	return out
}

func (v Values) Uint16() []uint16 {
	n := len(v.Raw) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.NativeEndian.Uint16(v.Raw[i*2:])
	}
	return out
}

func (v Values) Int32() []int32 {
	n := len(v.Raw) / 4
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.NativeEndian.Uint32(v.Raw[i*4:]))
	}
	return out
}

func (v Values) Uint32() []uint32 {
	n := len(v.Raw) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.NativeEndian.Uint32(v.Raw[i*4:])
	}
	return out
}

func (v Values) Int64() []int64 {
	n := len(v.Raw) / 8
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = int64(binary.NativeEndian.Uint64(v.Raw[i*8:]))
	}
	return out
}

func (v Values) Float32() []float32 {
	n := len(v.Raw) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(v.Raw[i*4:]))
	}
	return out
}

func (v Values) Float64() []float64 {
	n := len(v.Raw) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.NativeEndian.Uint64(v.Raw[i*8:]))
	}
	return out
}

func (v Values) Epoch() []Epoch {
	f := v.Float64()
	out := make([]Epoch, len(f))
	for i, x := range f {
		out[i] = Epoch(x)
	}
	return out
}

func (v Values) Epoch16() []Epoch16 {
	n := len(v.Raw) / 16
	out := make([]Epoch16, n)
	for i := 0; i < n; i++ {
		sec := math.Float64frombits(binary.NativeEndian.Uint64(v.Raw[i*16:]))
		pico := math.Float64frombits(binary.NativeEndian.Uint64(v.Raw[i*16+8:]))
		out[i] = Epoch16{Seconds: sec, Picoseconds: pico}
	}
	return out
}

func (v Values) TT2000() []TT2000 {
	i64 := v.Int64()
	out := make([]TT2000, len(i64))
	for i, x := range i64 {
		out[i] = TT2000(x)
	}
	return out
}

// String returns the raw bytes of a string-typed (CDF_CHAR/CDF_UCHAR)
// payload as a Go string, with no transcoding applied.
func (v Values) String() string { return string(v.Raw) }

// decodeValuePayload converts raw on-disk bytes (stored per enc's byte
// order, except single-byte and string types which have no byte order) to
// a native-order Values buffer (spec.md §4.6 step 7, §4.7).
func decodeValuePayload(raw []byte, typ Type, enc Encoding) Values {
	sz := typ.Size()
	if sz == 0 {
		return Values{Type: typ}
	}
	out := make([]byte, len(raw))
	if typ.IsString() || sz == 1 {
		copy(out, raw)
		return Values{Type: typ, Raw: out}
	}
	var srcOrder binary.ByteOrder = binary.BigEndian
	if !enc.bigEndian() {
		srcOrder = binary.LittleEndian
	}
	n := len(raw) / sz
	for i := 0; i < n; i++ {
		elem := raw[i*sz : (i+1)*sz]
		switch sz {
		case 2:
			binary.NativeEndian.PutUint16(out[i*2:], srcOrder.Uint16(elem))
		case 4:
			binary.NativeEndian.PutUint32(out[i*4:], srcOrder.Uint32(elem))
		case 8:
			binary.NativeEndian.PutUint64(out[i*8:], srcOrder.Uint64(elem))
		case 16:
			binary.NativeEndian.PutUint64(out[i*16:], srcOrder.Uint64(elem[0:8]))
			binary.NativeEndian.PutUint64(out[i*16+8:], srcOrder.Uint64(elem[8:16]))
		}
	}
	return Values{Type: typ, Raw: out}
}

// encodeValuePayload converts a native-order Values buffer back to
// on-disk bytes in big-endian order; the writer always emits network
// (big-endian) encoding (spec.md §4.10): newCDRw sets CDR.Encoding to
// EncodingNetwork.
func encodeValuePayload(v Values) []byte {
	sz := v.Type.Size()
	if sz == 0 || v.Type.IsString() || sz == 1 {
		return append([]byte(nil), v.Raw...)
	}
	out := make([]byte, len(v.Raw))
	n := len(v.Raw) / sz
	for i := 0; i < n; i++ {
		elem := v.Raw[i*sz : (i+1)*sz]
		switch sz {
		case 2:
			binary.BigEndian.PutUint16(out[i*2:], binary.NativeEndian.Uint16(elem))
		case 4:
			binary.BigEndian.PutUint32(out[i*4:], binary.NativeEndian.Uint32(elem))
		case 8:
			binary.BigEndian.PutUint64(out[i*8:], binary.NativeEndian.Uint64(elem))
		case 16:
			binary.BigEndian.PutUint64(out[i*16:], binary.NativeEndian.Uint64(elem[0:8]))
			binary.BigEndian.PutUint64(out[i*16+8:], binary.NativeEndian.Uint64(elem[8:16]))
		}
	}
	return out
}
