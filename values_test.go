// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
)

func TestValuesAccessors(t *testing.T) {
	raw := make([]byte, 8)
	binary.NativeEndian.PutUint32(raw[0:], uint32(int32(-5)))
	binary.NativeEndian.PutUint32(raw[4:], 9)
	v := Values{Type: TypeInt4, Raw: raw}
	if got := v.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if got := v.Int32(); !reflect.DeepEqual(got, []int32{-5, 9}) {
		t.Errorf("Int32() = %v, want [-5 9]", got)
	}
}

func TestValuesLenString(t *testing.T) {
	v := Values{Type: TypeChar, Raw: []byte("hello")}
	if got := v.Len(); got != 5 {
		t.Errorf("Len() on a string value = %d, want 5", got)
	}
	if got := v.String(); got != "hello" {
		t.Errorf("String() = %q, want hello", got)
	}
}

func TestDecodeEncodeValuePayloadRoundTrip(t *testing.T) {
	native := make([]byte, 8)
	binary.NativeEndian.PutUint32(native[0:], 1000)
	binary.NativeEndian.PutUint32(native[4:], 2000)

	onDisk := encodeValuePayload(Values{Type: TypeInt4, Raw: native})
	if got := binary.BigEndian.Uint32(onDisk[0:]); got != 1000 {
		t.Errorf("encodeValuePayload wrote %d at element 0, want 1000 big-endian", got)
	}

	back := decodeValuePayload(onDisk, TypeInt4, EncodingNetwork)
	if !reflect.DeepEqual(back.Raw, native) {
		t.Errorf("decodeValuePayload(encodeValuePayload(x)) = %v, want %v", back.Raw, native)
	}
}

func TestDecodeValuePayloadLittleEndianSource(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, 42)
	got := decodeValuePayload(raw, TypeInt4, EncodingIBMPC)
	if want := uint32(42); binary.NativeEndian.Uint32(got.Raw) != want {
		t.Errorf("decodeValuePayload(little-endian source) = %v, want native value %d", got.Raw, want)
	}
}

func TestDecodeValuePayloadStringUnchanged(t *testing.T) {
	raw := []byte("abcd")
	got := decodeValuePayload(raw, TypeChar, EncodingNetwork)
	if !reflect.DeepEqual(got.Raw, raw) {
		t.Errorf("decodeValuePayload(string) = %v, want unchanged %v", got.Raw, raw)
	}
}

func TestDecodeValuePayloadEpoch16(t *testing.T) {
	raw := make([]byte, 16)
	binary.BigEndian.PutUint64(raw[0:], math.Float64bits(1.5))
	binary.BigEndian.PutUint64(raw[8:], math.Float64bits(2.5))
	v := decodeValuePayload(raw, TypeEpoch16, EncodingNetwork)
	got := v.Epoch16()
	if len(got) != 1 || got[0].Seconds != 1.5 || got[0].Picoseconds != 2.5 {
		t.Errorf("Epoch16() = %+v, want [{1.5 2.5}]", got)
	}
}
