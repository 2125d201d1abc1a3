// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "fmt"

// version captures everything about a file's on-disk layout that depends
// on its format version (spec.md §4.2, §4.3): whether offsets are 32- or
// 64-bit, and, for v2 only, whether the CDR.copyright field is 1945 or 256
// bytes and whether the VDR carries a 132-byte padding table.
type version struct {
	v3       bool
	v2Legacy bool // v2, Release < 5: "v2.4-or-less" layout
}

func (v version) copyrightLen() int {
	if v.v3 {
		return 256
	}
	if v.v2Legacy {
		return 1945
	}
	return 256
}

func (v version) nameLen() int {
	if v.v3 {
		return 256
	}
	return 64
}

// vdrPadTableLen returns the byte length of the legacy v2.4-or-less VDR
// padding table (0 on v3 and on v2.5-or-more, where the slot is a plain
// unused int32).
func (v version) vdrPadTableLen() int {
	if !v.v3 && v.v2Legacy {
		return 132
	}
	return 0
}

// cdr is the decoded CDF Descriptor Record (spec.md §3.3).
type cdr struct {
	GDRoffset  int64
	Version    uint32
	Release    uint32
	Encoding   Encoding
	Flags      uint32
	Increment  uint32
	Identifier uint32
	Copyright  string
}

// rowMajor reports the on-disk majority declared by CDR.Flags bit 0.
func (c *cdr) rowMajor() bool { return c.Flags&0x1 != 0 }

func decodeCDR(src ByteSource, off int64, v3 bool) (*cdr, version, error) {
	d := newDecoder(src, off, v3)
	_, typ := readHeader(d)
	if typ != RecordCDR {
		return nil, version{}, &BadRecordError{At: off, Want: []RecordType{RecordCDR}, Got: typ}
	}
	c := &cdr{}
	c.GDRoffset = d.offsetField()
	c.Version = d.u32()
	c.Release = d.u32()
	ver := version{v3: v3}
	if !v3 {
		ver.v2Legacy = c.Release < 5
	}
	c.Encoding = Encoding(d.i32())
	c.Flags = d.u32()
	d.skip(4) // rfuA
	d.skip(4) // rfuB
	c.Increment = d.u32()
	c.Identifier = d.u32()
	d.skip(4) // rfuE
	c.Copyright = d.str(ver.copyrightLen())
	if d.err != nil {
		return nil, version{}, d.err
	}
	return c, ver, nil
}

// gdr is the decoded Global Descriptor Record (spec.md §3.3).
type gdr struct {
	RVDRhead              int64
	ZVDRhead              int64
	ADRhead               int64
	EOF                   int64
	NrVars                uint32
	NumAttr               uint32
	RMaxRec               uint32
	RNumDims              uint32
	NzVars                uint32
	UIRhead               int64
	LeapSecondLastUpdated uint32
	RDimSizes             []uint32
}

func decodeGDR(src ByteSource, off int64, ver version) (*gdr, error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != RecordGDR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordGDR}, Got: typ}
	}
	g := &gdr{}
	g.RVDRhead = d.offsetField()
	g.ZVDRhead = d.offsetField()
	g.ADRhead = d.offsetField()
	g.EOF = d.offsetField()
	g.NrVars = d.u32()
	g.NumAttr = d.u32()
	g.RMaxRec = d.u32()
	g.RNumDims = d.u32()
	g.NzVars = d.u32()
	g.UIRhead = d.offsetField()
	d.skip(4) // rfuC
	g.LeapSecondLastUpdated = d.u32()
	d.skip(4) // rfuE
	g.RDimSizes = d.u32Table(int(g.RNumDims))
	if d.err != nil {
		return nil, d.err
	}
	return g, nil
}

// readHeader reads the record header common to every record (spec.md
// §3.2): a version-width record_size followed by a 4-byte record_type.
func readHeader(d *decoder) (size int64, typ RecordType) {
	if d.v3 {
		size = d.i64()
	} else {
		size = int64(d.i32())
	}
	typ = RecordType(d.i32())
	return
}

// peekRecordType reads the record_type tag at offset without consuming a
// persistent cursor, used for the polymorphic VXR.Offset[i] slot (spec.md
// §4.4, §9).
func peekRecordType(src ByteSource, offset int64, v3 bool) (RecordType, error) {
	d := newDecoder(src, offset, v3)
	_, typ := readHeader(d)
	if d.err != nil {
		return 0, d.err
	}
	return typ, nil
}

// magicNumbers is the raw 8-byte magic word pair at offset 0.
type magicNumbers struct {
	Word1, Word2 uint32
}

func readMagic(src ByteSource) (magicNumbers, error) {
	d := newDecoder(src, 0, false)
	m := magicNumbers{Word1: d.u32(), Word2: d.u32()}
	if d.err != nil {
		return magicNumbers{}, d.err
	}
	return m, nil
}

// detectVersion validates the magic and derives (v3, compressed) per
// spec.md §4.3 steps 1-3.
func detectVersion(m magicNumbers) (v3 bool, compressed bool, err error) {
	if m.Word1&magic1Mask != 0xCDF00000 {
		return false, false, ErrNotACDF
	}
	major := (m.Word1 >> 16) & 0xF
	v3 = major >= 3
	switch m.Word2 {
	case magic2Uncompr:
		compressed = false
	case magic2Compr:
		compressed = true
	default:
		return false, false, fmt.Errorf("cdf: unrecognised second magic word %#x: %w", m.Word2, ErrNotACDF)
	}
	return v3, compressed, nil
}
