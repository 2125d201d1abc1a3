// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"fmt"

	"github.com/rs/zerolog"
)

// vdr is the decoded Variable Descriptor Record, common layout shared by
// the r-variable and z-variable variants (spec.md §3.3). zNumDims/zDimSizes
// are zero/empty for an r-variable, which instead takes its dimensions
// from the GDR's rDimSizes filtered by DimVarys.
type vdr struct {
	Self           int64
	VDRnext        int64
	DataType       Type
	MaxRec         int32
	VXRhead        int64
	VXRtail        int64
	Flags          uint32
	NumElems       int32
	Num            int32
	CPRorSPRoffset int64
	BlockingFactor int32
	Name           string
	ZNumDims       int32
	ZDimSizes      []int32
	DimVarys       []int32
}

func (v *vdr) recordVaries() bool    { return v.Flags&0x1 != 0 }
func (v *vdr) isCompressed() bool    { return v.Flags&0x4 != 0 }
func (v *vdr) padValuePresent() bool { return v.Flags&0x2 != 0 }

func decodeVDR(src ByteSource, off int64, ver version, isZ bool, rNumDims int) (*vdr, error) {
	want := RecordRVDR
	if isZ {
		want = RecordZVDR
	}
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != want {
		return nil, &BadRecordError{At: off, Want: []RecordType{want}, Got: typ}
	}
	v := &vdr{Self: off}
	v.VDRnext = d.offsetField()
	v.DataType = Type(d.i32())
	v.MaxRec = d.i32()
	v.VXRhead = d.offsetField()
	v.VXRtail = d.offsetField()
	v.Flags = d.u32()
	d.skip(4) // SRecords
	d.skip(4) // rfuB
	d.skip(4) // rfuC
	// rfuF is a 132-byte legacy padding table on v2.4-or-less, a plain
	// int32 everywhere else.
	if padLen := ver.vdrPadTableLen(); padLen != 0 {
		d.skip(int64(padLen))
	} else {
		d.skip(4)
	}
	v.NumElems = d.i32()
	v.Num = d.i32()
	v.CPRorSPRoffset = d.offsetField()
	v.BlockingFactor = d.i32()
	v.Name = d.str(ver.nameLen())
	dims := rNumDims
	if isZ {
		v.ZNumDims = d.i32()
		v.ZDimSizes = d.i32Table(int(v.ZNumDims))
		dims = int(v.ZNumDims)
	}
	v.DimVarys = d.i32Table(dims)
	// PadValues: present only when Flags bit 1 is set; length depends on
	// DataType/shape and is consumed by the caller on demand rather than
	// here, since it is never needed to assemble variable data.
	if d.err != nil {
		return nil, d.err
	}
	if !v.DataType.Valid() {
		return nil, &InvalidEnumError{Field: "VDR.DataType", Value: int32(v.DataType)}
	}
	return v, nil
}

// vdrIterator walks an rVDR or zVDR chain along VDRnext (spec.md §4.4).
type vdrIterator struct {
	src      ByteSource
	ver      version
	isZ      bool
	rNumDims int
	next     int64
	err      error
}

func newVDRIterator(src ByteSource, ver version, head int64, isZ bool, rNumDims int) *vdrIterator {
	return &vdrIterator{src: src, ver: ver, isZ: isZ, rNumDims: rNumDims, next: head}
}

func (it *vdrIterator) Next() (*vdr, bool) {
	if it.err != nil || it.next == 0 {
		return nil, false
	}
	v, err := decodeVDR(it.src, it.next, it.ver, it.isZ, it.rNumDims)
	if err != nil {
		it.err = err
		return nil, false
	}
	it.next = v.VDRnext
	return v, true
}

// vxr is the decoded Variable Index Record: a fan-out table of up to
// Nentries (First[i], Last[i], Offset[i]) triples, where Offset[i] points
// at a VVR, CVVR, or nested VXR (spec.md §3.3, §4.6).
type vxr struct {
	VXRnext      int64
	Nentries     uint32
	NusedEntries uint32
	First        []uint32
	Last         []uint32
	Offset       []int64
}

func decodeVXR(src ByteSource, off int64, ver version) (*vxr, error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != RecordVXR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordVXR}, Got: typ}
	}
	x := &vxr{}
	x.VXRnext = d.offsetField()
	x.Nentries = d.u32()
	x.NusedEntries = d.u32()
	x.First = d.u32Table(int(x.Nentries))
	x.Last = d.u32Table(int(x.Nentries))
	x.Offset = d.offsetTable(int(x.Nentries))
	if d.err != nil {
		return nil, d.err
	}
	return x, nil
}

func decodeVVRData(src ByteSource, off int64, ver version, n int64) ([]byte, error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != RecordVVR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordVVR}, Got: typ}
	}
	buf := make([]byte, n)
	if err := src.ReadInto(buf, d.pos()); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeCVVRData(src ByteSource, off int64, ver version) (compressed []byte, err error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != RecordCVVR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordCVVR}, Got: typ}
	}
	d.skip(4) // rfuA
	cSize := d.offsetField()
	buf := make([]byte, cSize)
	if err := src.ReadInto(buf, d.pos()); err != nil {
		return nil, err
	}
	return buf, nil
}

// assembleVariableData walks vdr's VXR tree and concatenates the logical
// record bytes it indexes, decompressing any CVVR block along the way
// (spec.md §4.6 steps 1-6). depth counts VXR nesting through Offset[i]
// entries and is bounded by maxDepth (Options.MaxVXRDepth), which stops a
// cycle through nested entries; the VXRnext chain at each level is followed
// until it reaches zero, with no bound on its length. A VXR entry whose target peeks as neither
// VVR, CVVR, nor VXR (an SPR/UIR placeholder, spec.md §6.1) is skipped and
// recorded into anomalies rather than treated as fatal.
func assembleVariableData(src ByteSource, ver version, v *vdr, recordSize int64, recordCount int64, compression CompressionType, maxDepth uint32, anomalies *[]string, logger zerolog.Logger) ([]byte, error) {
	total := recordSize * recordCount
	out := make([]byte, 0, total)
	if v.VXRhead == 0 {
		return out, nil
	}
	var walk func(off int64, depth uint32) error
	walk = func(off int64, depth uint32) error {
		for off != 0 {
			if depth > maxDepth {
				return fmt.Errorf("cdf: VXR chain exceeds max depth %d for variable %q", maxDepth, v.Name)
			}
			x, err := decodeVXR(src, off, ver)
			if err != nil {
				return fmt.Errorf("cdf: decoding VXR for variable %q: %w", v.Name, err)
			}
			for i := uint32(0); i < x.NusedEntries; i++ {
				entryOff := x.Offset[i]
				recCount := int64(x.Last[i]) - int64(x.First[i]) + 1
				kind, err := peekRecordType(src, entryOff, ver.v3)
				if err != nil {
					return fmt.Errorf("cdf: peeking record type for variable %q: %w", v.Name, err)
				}
				switch kind {
				case RecordVVR:
					want := recCount * recordSize
					if remaining := total - int64(len(out)); want > remaining {
						want = remaining
					}
					data, err := decodeVVRData(src, entryOff, ver, want)
					if err != nil {
						return fmt.Errorf("cdf: decoding VVR for variable %q: %w", v.Name, err)
					}
					out = append(out, data...)
				case RecordCVVR:
					raw, err := decodeCVVRData(src, entryOff, ver)
					if err != nil {
						return fmt.Errorf("cdf: decoding CVVR for variable %q: %w", v.Name, err)
					}
					inflated, err := inflate(compression, raw)
					if err != nil {
						return fmt.Errorf("cdf: inflating CVVR for variable %q: %w", v.Name, err)
					}
					if want := recCount * recordSize; int64(len(inflated)) != want {
						return fmt.Errorf("cdf: CVVR for variable %q inflated to %d bytes, want %d: %w", v.Name, len(inflated), want, ErrBadCompressedData)
					}
					out = append(out, inflated...)
				case RecordVXR:
					if err := walk(entryOff, depth+1); err != nil {
						return err
					}
				default:
					logger.Debug().Str("variable", v.Name).Stringer("record_type", kind).Msg(AnoUnknownRecordSkipped)
					*anomalies = append(*anomalies, fmt.Sprintf("%s: variable %q, record type %v", AnoUnknownRecordSkipped, v.Name, kind))
				}
			}
			off = x.VXRnext
		}
		return nil
	}
	if err := walk(v.VXRhead, 0); err != nil {
		return nil, err
	}
	if int64(len(out)) != total {
		return nil, fmt.Errorf("cdf: variable %q assembled %d bytes, want %d: %w", v.Name, len(out), total, ErrShapeMismatch)
	}
	return out, nil
}

// variableDimensions computes a variable's per-record shape (spec.md §4.6
// step 1): for z-variables, zDimSizes filtered by DimVarys; for
// r-variables, the GDR's rDimSizes filtered by DimVarys (defaulting to
// [1] when the variable declares no varying dimensions); a trailing
// character-count axis is appended for string types.
func variableDimensions(v *vdr, isZ bool, rDimSizes []uint32) []int {
	var dims []int
	if isZ {
		for i, sz := range v.ZDimSizes {
			if v.DimVarys[i] != 0 {
				dims = append(dims, int(sz))
			}
		}
	} else if len(v.DimVarys) != 0 {
		for i, sz := range rDimSizes {
			if v.DimVarys[i] != 0 {
				dims = append(dims, int(sz))
			}
		}
	}
	if v.DataType.IsString() {
		dims = append(dims, int(v.NumElems))
	}
	if !isZ && len(dims) == 0 {
		dims = []int{1}
	}
	return dims
}

// recordCount resolves a variable's logical record count from MaxRec and
// its record-variance flag (spec.md §4.6 step 2): a no-record-variance
// variable with MaxRec != -1 has exactly one logical record; otherwise it
// has MaxRec+1.
func recordCount(v *vdr) int64 {
	if !v.recordVaries() && v.MaxRec != -1 {
		return 1
	}
	return int64(v.MaxRec) + 1
}

// recordSizes returns the per-record byte size implied by dims: the
// product of all dims times the element width, or, for string types (whose
// trailing axis is the character count), the product of all dims.
func recordSizes(v *vdr, dims []int) (byteSize int64) {
	n := int64(1)
	for _, d := range dims {
		n *= int64(d)
	}
	if len(dims) == 0 {
		n = 1
	}
	if v.DataType.IsString() {
		return n
	}
	return n * int64(v.DataType.Size())
}

func lookupCompression(src ByteSource, ver version, v *vdr) (CompressionType, error) {
	if !v.isCompressed() {
		return CompressionNone, nil
	}
	if v.CPRorSPRoffset == -1 {
		return CompressionNone, nil
	}
	cp, err := decodeCPR(src, v.CPRorSPRoffset, ver.v3)
	if err != nil {
		return CompressionNone, fmt.Errorf("cdf: decoding CPR for variable %q: %w", v.Name, err)
	}
	return cp.CType, nil
}

// Variable is an in-memory CDF variable: a typed, shaped buffer plus the
// attributes targeting it (spec.md §3.1, §3.4).
type Variable struct {
	Name           string
	Num            int
	IsZVariable    bool
	Shape          []int // leading dimension is the record count
	RecordVariance bool
	Compression    CompressionType
	Values         Values
	Attributes     map[string]VariableAttribute

	loader func() (Values, error)
}

// Get materializes and returns the variable's values, performing the
// deferred decode/decompress/endian/majority pipeline on first access if
// the variable was loaded lazily (spec.md §5, §9 "Lazy values").
func (v *Variable) Get() (Values, error) {
	if v.loader == nil {
		return v.Values, nil
	}
	vals, err := v.loader()
	if err != nil {
		return Values{}, err
	}
	v.Values = vals
	v.loader = nil
	return v.Values, nil
}

func loadVariable(src ByteSource, ver version, v *vdr, isZ bool, rDimSizes []uint32, enc Encoding, majority Majority, maxDepth uint32, lazy bool, anomalies *[]string, logger zerolog.Logger) (*Variable, error) {
	dims := variableDimensions(v, isZ, rDimSizes)
	recSize := recordSizes(v, dims)
	recs := recordCount(v)
	compression, err := lookupCompression(src, ver, v)
	if err != nil {
		return nil, err
	}
	if !compression.supported() {
		return nil, fmt.Errorf("cdf: variable %q: %w: %v", v.Name, ErrUnsupportedCompression, compression)
	}
	shape := append([]int{int(recs)}, dims...)

	materialize := func() (Values, error) {
		raw, err := assembleVariableData(src, ver, v, recSize, recs, compression, maxDepth, anomalies, logger)
		if err != nil {
			return Values{}, err
		}
		decoded := decodeValuePayload(raw, v.DataType, enc)
		if majority == MajorityColumn {
			elemSize := v.DataType.Size()
			swapDims := dims
			if v.DataType.IsString() && len(dims) > 0 {
				swapDims = dims[:len(dims)-1]
				elemSize = dims[len(dims)-1]
			}
			decoded.Raw = swapMajority(decoded.Raw, elemSize, swapDims)
		}
		return decoded, nil
	}

	out := &Variable{
		Name:           v.Name,
		Num:            int(v.Num),
		IsZVariable:    isZ,
		Shape:          shape,
		RecordVariance: v.recordVaries(),
		Compression:    compression,
	}
	if lazy {
		out.loader = materialize
	} else {
		vals, err := materialize()
		if err != nil {
			return nil, err
		}
		out.Values = vals
	}
	return out, nil
}
