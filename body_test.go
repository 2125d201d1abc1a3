// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildCompressedFile assembles a minimal compressed CDF body byte-for-byte
// the way Save does: an 8-byte compressed magic, a CCR wrapping the
// gzip-compressed body, and a trailing CPR.
func buildCompressedFile(t *testing.T, body []byte) []byte {
	t.Helper()
	compressed, err := deflate(CompressionGzip, body)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	ccrHeaderLen := recordHeaderSize(true) + 8 + 8 + 4
	cpr := newCPRw(CompressionGzip)
	cprOffset := 8 + ccrHeaderLen + int64(len(compressed))
	cpr.setSelf(cprOffset)

	ccrE := newEncoder(true)
	ccrSize := ccrHeaderLen + int64(len(compressed))
	ccrE.putU64(uint64(ccrSize))
	ccrE.putI32(int32(RecordCCR))
	ccrE.putOffset(cprOffset)
	ccrE.putOffset(int64(len(body)))
	ccrE.putZero(4)
	ccrE.buf.Write(compressed)

	var buf bytes.Buffer
	buf.Write([]byte{0xCD, 0xF3, 0x00, 0x01, 0xCC, 0xCC, 0x00, 0x01})
	buf.Write(ccrE.bytes())
	buf.Write(cpr.encode())
	return buf.Bytes()
}

func TestDecodeCCRAndCPR(t *testing.T) {
	body := []byte("pretend this is an uncompressed CDF record body")
	raw := buildCompressedFile(t, body)
	src := NewMemorySource(raw)

	ccr, err := decodeCCR(src, 8, true)
	if err != nil {
		t.Fatalf("decodeCCR: %v", err)
	}
	if ccr.USize != int64(len(body)) {
		t.Errorf("CCR.USize = %d, want %d", ccr.USize, len(body))
	}
	if ccr.DataOffset != 8+recordHeaderSize(true)+8+8+4 {
		t.Errorf("CCR.DataOffset = %d, want %d", ccr.DataOffset, 8+recordHeaderSize(true)+8+8+4)
	}

	cpr, err := decodeCPR(src, ccr.CPRoffset, true)
	if err != nil {
		t.Fatalf("decodeCPR: %v", err)
	}
	if cpr.CType != CompressionGzip {
		t.Errorf("CPR.CType = %v, want %v", cpr.CType, CompressionGzip)
	}
	if cpr.PCount != 0 || len(cpr.CParms) != 0 {
		t.Errorf("CPR.CParms = %v, want none", cpr.CParms)
	}
}

func TestDecodeCPRWrongRecordType(t *testing.T) {
	body := []byte("x")
	raw := buildCompressedFile(t, body)
	src := NewMemorySource(raw)

	// Offset 8 holds the CCR, not a CPR.
	_, err := decodeCPR(src, 8, true)
	var bre *BadRecordError
	if !errors.As(err, &bre) {
		t.Fatalf("decodeCPR at a CCR offset returned %v, want *BadRecordError", err)
	}
	if bre.Got != RecordCCR {
		t.Errorf("BadRecordError.Got = %v, want %v", bre.Got, RecordCCR)
	}
}

func TestOpenBodyRoundTrip(t *testing.T) {
	body := []byte("round trip through openBody and back out again")
	raw := buildCompressedFile(t, body)
	src := NewMemorySource(raw)

	opened, err := openBody(src, true, true)
	if err != nil {
		t.Fatalf("openBody: %v", err)
	}
	got, err := opened.View(0, opened.Size())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := append([]byte{0xCD, 0xF3, 0x00, 0x01, 0xCC, 0xCC, 0x00, 0x01}, body...)
	if !bytes.Equal(got, want) {
		t.Errorf("openBody reinflated = %q, want %q", got, want)
	}
}

func TestOpenBodyUncompressedPassthrough(t *testing.T) {
	src := NewMemorySource([]byte{0xCD, 0xF3, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xFF})
	opened, err := openBody(src, true, false)
	if err != nil {
		t.Fatalf("openBody: %v", err)
	}
	if opened != src {
		t.Error("openBody(compressed=false) should return src unchanged")
	}
}

func TestOpenBodyBadUSize(t *testing.T) {
	body := []byte("some bytes")
	raw := buildCompressedFile(t, body)

	// Corrupt the CCR's declared uncompressed size so it disagrees with
	// what actually inflates.
	uSizeOff := 8 + recordHeaderSize(true) + 8 // past size+rectype+CPRoffset
	binary.BigEndian.PutUint64(raw[uSizeOff:], uint64(len(body)+1))

	src := NewMemorySource(raw)
	_, err := openBody(src, true, true)
	if !errors.Is(err, ErrBadCompressedData) {
		t.Errorf("openBody with a corrupted uSize returned %v, want ErrBadCompressedData", err)
	}
}
