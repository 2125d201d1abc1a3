// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"testing"
)

func TestSaveUncompressedMagic(t *testing.T) {
	c := newCDF()
	var buf bytes.Buffer
	if err := Save(c, &buf, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := []byte{0xCD, 0xF3, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xFF}
	if got := buf.Bytes()[:8]; !bytes.Equal(got, want) {
		t.Errorf("magic = % x, want % x", got, want)
	}
	v3, compressed, err := detectVersion(magicNumbers{
		Word1: uint32(buf.Bytes()[0])<<24 | uint32(buf.Bytes()[1])<<16 | uint32(buf.Bytes()[2])<<8 | uint32(buf.Bytes()[3]),
		Word2: uint32(buf.Bytes()[4])<<24 | uint32(buf.Bytes()[5])<<16 | uint32(buf.Bytes()[6])<<8 | uint32(buf.Bytes()[7]),
	})
	if err != nil {
		t.Fatalf("detectVersion: %v", err)
	}
	if !v3 || compressed {
		t.Errorf("detectVersion(uncompressed save) = (%v, %v), want (true, false)", v3, compressed)
	}
}

func TestSaveCompressedCCRLinksToCPR(t *testing.T) {
	c := newCDF()
	values := Values{Type: TypeInt4, Raw: make([]byte, 4)}
	if err := c.AddVariable("x", values, []int{1}, false, CompressionNone); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	var buf bytes.Buffer
	if err := Save(c, &buf, Options{Compression: CompressionGzip}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	src := NewMemorySource(buf.Bytes())
	ccr, err := decodeCCR(src, 8, true)
	if err != nil {
		t.Fatalf("decodeCCR: %v", err)
	}
	cpr, err := decodeCPR(src, ccr.CPRoffset, true)
	if err != nil {
		t.Fatalf("decodeCPR at CCR.CPRoffset=%d: %v", ccr.CPRoffset, err)
	}
	if cpr.CType != CompressionGzip {
		t.Errorf("CPR.CType = %v, want %v", cpr.CType, CompressionGzip)
	}

	// The CCR's declared data length must exactly span [DataOffset, CPRoffset).
	if got, want := ccr.DataOffset+ccr.DataLen, ccr.CPRoffset; got != want {
		t.Errorf("CCR data region ends at %d, CPR starts at %d, want equal", got, want)
	}
}

func TestNewVXRwSizeMatchesEncodedLength(t *testing.T) {
	x := newVXRw([]uint32{0, 5}, []uint32{4, 9}, []writeRecord{&vvrW{}, &vvrW{}})
	x.setSelf(100)
	// Offset fields reference other records' self(); give them placeholder
	// offsets so encode() doesn't dereference a zero baseRecord oddly.
	for _, o := range x.Offset {
		o.(*vvrW).setSelf(200)
	}
	encoded := x.encode()
	if int64(len(encoded)) != x.recSize() {
		t.Errorf("encoded VXR length = %d, recSize() = %d", len(encoded), x.recSize())
	}
}

func TestWriteRecordSizesMatchEncodedLength(t *testing.T) {
	gdr := newGDRw()
	gdr.setSelf(8)
	cdr := newCDRw(gdr)
	cdr.setSelf(100)

	adr := newADRw(ScopeGlobal, 0, "test")
	adr.setSelf(200)

	vdr := newVDRw(TypeInt4, "v", 0, 1, []int32{2}, []int32{1}, 3, true)
	vdr.setSelf(300)

	cpr := newCPRw(CompressionGzip)
	cpr.setSelf(400)

	vvr := newVVRw([]byte{1, 2, 3, 4})
	vvr.setSelf(500)

	cvvr := newCVVRw([]byte{1, 2, 3, 4})
	cvvr.setSelf(600)

	aedr := newAEDRw(RecordAgrEDR, 0, 0, Values{Type: TypeChar, Raw: []byte("hi")})
	aedr.setSelf(700)

	records := []writeRecord{gdr, cdr, adr, vdr, cpr, vvr, cvvr, aedr}
	for _, r := range records {
		if got, want := int64(len(r.encode())), r.recSize(); got != want {
			t.Errorf("%T: encoded length = %d, recSize() = %d", r, got, want)
		}
	}
}
