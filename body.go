// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "fmt"

// cpr is the decoded Compression Parameters Record (spec.md §3.2, §4.8).
type cpr struct {
	CType  CompressionType
	PCount uint32
	CParms []uint32
}

func decodeCPR(src ByteSource, off int64, v3 bool) (*cpr, error) {
	d := newDecoder(src, off, v3)
	_, typ := readHeader(d)
	if typ != RecordCPR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordCPR}, Got: typ}
	}
	c := &cpr{}
	c.CType = CompressionType(d.i32())
	d.skip(4) // rfuA
	c.PCount = d.u32()
	c.CParms = d.u32Table(int(c.PCount))
	if d.err != nil {
		return nil, d.err
	}
	return c, nil
}

// ccr is the decoded Compressed CDF Record wrapping the whole file body
// (spec.md §3.2, §4.3 step 4).
type ccr struct {
	CPRoffset  int64
	USize      int64
	DataOffset int64
	DataLen    int64
}

func decodeCCR(src ByteSource, off int64, v3 bool) (*ccr, error) {
	d := newDecoder(src, off, v3)
	size, typ := readHeader(d)
	if typ != RecordCCR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordCCR}, Got: typ}
	}
	c := &ccr{}
	c.CPRoffset = d.offsetField()
	c.USize = d.offsetField()
	d.skip(4) // rfuA
	c.DataOffset = d.pos()
	c.DataLen = size - (c.DataOffset - off)
	if d.err != nil {
		return nil, d.err
	}
	return c, nil
}

// openBody returns the byte source the rest of the reader should walk: for
// an uncompressed file this is src itself; for a compressed file it
// inflates the single CCR payload into a fresh in-memory buffer prefixed
// with the original 8-byte magic, per spec.md §4.3 step 4 and invariant
// §3.4.7.
func openBody(src ByteSource, v3 bool, compressed bool) (ByteSource, error) {
	if !compressed {
		return src, nil
	}
	c, err := decodeCCR(src, 8, v3)
	if err != nil {
		return nil, fmt.Errorf("cdf: decoding CCR: %w", err)
	}
	cp, err := decodeCPR(src, c.CPRoffset, v3)
	if err != nil {
		return nil, fmt.Errorf("cdf: decoding CPR: %w", err)
	}
	if !cp.CType.supported() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, cp.CType)
	}
	raw, err := src.View(c.DataOffset, c.DataLen)
	if err != nil {
		return nil, err
	}
	inflated, err := inflate(cp.CType, raw)
	if err != nil {
		return nil, err
	}
	if int64(len(inflated)) != c.USize {
		return nil, fmt.Errorf("cdf: inflated body is %d bytes, CCR.uSize declared %d: %w", len(inflated), c.USize, ErrBadCompressedData)
	}
	buf := make([]byte, 8+len(inflated))
	if err := src.ReadInto(buf[:8], 0); err != nil {
		return nil, err
	}
	copy(buf[8:], inflated)
	return NewMemorySource(buf), nil
}
