// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"fmt"
	"io"
	"sort"
)

// maxRawBlockSize caps the raw payload carried by a single VVR/CVVR,
// matching the 1 GiB ceiling the reference writer uses when chunking a
// large variable's records across multiple value records (spec.md §4.10
// step 1, original_source create_records.hpp).
const maxRawBlockSize = 1 << 30

// writeRecord is any on-disk wrapper the writer emits. recSize is knowable
// immediately after Build: every table field's length is fixed by counts
// decided at build time, never by the eventual offset values. encode is
// only called once every node's self() offset has been assigned by
// Layout, so encode implementations may freely read other nodes' self().
type writeRecord interface {
	recSize() int64
	self() int64
	setSelf(int64)
	encode() []byte
}

// baseRecord factors the self-offset bookkeeping shared by every record
// kind.
type baseRecord struct {
	typ  RecordType
	off  int64
	size int64
}

func (b *baseRecord) recSize() int64  { return b.size }
func (b *baseRecord) self() int64     { return b.off }
func (b *baseRecord) setSelf(o int64) { b.off = o }

// linkNext resolves a possibly-nil chain pointer to its on-disk offset.
func linkNext(n writeRecord) int64 {
	if n == nil {
		return 0
	}
	return n.self()
}

type cdrW struct {
	baseRecord
	gdr      *gdrW
	Encoding Encoding
	Flags    uint32
}

func (r *cdrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordCDR))
	e.putOffset(r.gdr.self())
	e.putU32(3) // Version
	e.putU32(8) // Release
	e.putI32(int32(r.Encoding))
	e.putU32(r.Flags)
	e.putZero(4) // rfuA
	e.putZero(4) // rfuB
	e.putU32(0)  // Increment
	e.putU32(0)  // Identifier
	e.putZero(4) // rfuE
	e.putStr("", 256)
	return e.bytes()
}

func newCDRw(gdr *gdrW) *cdrW {
	r := &cdrW{gdr: gdr, Encoding: EncodingNetwork, Flags: 0x1}
	r.typ = RecordCDR
	r.size = recordHeaderSize(true) + 8 + 4*9 + 256
	return r
}

type gdrW struct {
	baseRecord
	adrHead               writeRecord
	zvdrHead              writeRecord
	EOF                   int64
	NumAttr               uint32
	NzVars                uint32
	LeapSecondLastUpdated uint32
}

func (r *gdrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordGDR))
	e.putOffset(0) // rVDRhead: writer never emits r-variables
	e.putOffset(linkNext(r.zvdrHead))
	e.putOffset(linkNext(r.adrHead))
	e.putOffset(r.EOF)
	e.putU32(0) // NrVars
	e.putU32(r.NumAttr)
	e.putI32(-1) // rMaxRec: no r-variables
	e.putU32(0)  // rNumDims
	e.putU32(r.NzVars)
	e.putOffset(0) // UIRhead
	e.putZero(4)   // rfuC
	e.putU32(r.LeapSecondLastUpdated)
	e.putZero(4) // rfuE
	return e.bytes()
}

func newGDRw() *gdrW {
	r := &gdrW{}
	r.typ = RecordGDR
	r.size = recordHeaderSize(true) + 5*8 + 8*4
	return r
}

type adrW struct {
	baseRecord
	Scope      AttrScope
	Num        int32
	agrEDRHead writeRecord
	azEDRHead  writeRecord
	NgrEntries int32
	NzEntries  int32
	Name       string
	next       writeRecord
}

func (r *adrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordADR))
	e.putOffset(linkNext(r.next))
	e.putOffset(linkNext(r.agrEDRHead))
	e.putI32(int32(r.Scope))
	e.putI32(r.Num)
	e.putI32(r.NgrEntries)
	e.putI32(r.NgrEntries - 1)
	e.putZero(4)
	e.putOffset(linkNext(r.azEDRHead))
	e.putI32(r.NzEntries)
	e.putI32(r.NzEntries - 1)
	e.putZero(4)
	e.putStr(r.Name, 256)
	return e.bytes()
}

func newADRw(scope AttrScope, num int32, name string) *adrW {
	r := &adrW{Scope: scope, Num: num, Name: name}
	r.typ = RecordADR
	r.size = recordHeaderSize(true) + 3*8 + 8*4 + 256
	return r
}

type aedrW struct {
	baseRecord
	kind       RecordType // RecordAgrEDR or RecordAzEDR
	AttrNum    int32
	DataType   Type
	Num        int32
	next       writeRecord
	payload    []byte
	numStrings int32
}

func (r *aedrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(r.kind))
	e.putOffset(linkNext(r.next))
	e.putI32(r.AttrNum)
	e.putI32(int32(r.DataType))
	e.putI32(r.Num)
	e.putI32(numElements(r.DataType, r.payload))
	e.putI32(r.numStrings)
	e.putZero(4)
	e.putZero(4)
	e.putZero(4)
	e.putZero(4)
	e.buf.Write(r.payload)
	return e.bytes()
}

func numElements(t Type, payload []byte) int32 {
	if t.IsString() {
		return int32(len(payload))
	}
	if sz := t.Size(); sz > 0 {
		return int32(len(payload) / sz)
	}
	return 0
}

func newAEDRw(kind RecordType, attrNum int32, num int32, v Values) *aedrW {
	payload := encodeValuePayload(v)
	numStrings := int32(0)
	if v.Type.IsString() {
		numStrings = 1
	}
	r := &aedrW{kind: kind, AttrNum: attrNum, DataType: v.Type, Num: num, payload: payload, numStrings: numStrings}
	r.typ = kind
	r.size = recordHeaderSize(true) + 8 + 4*9 + int64(len(payload))
	return r
}

type vdrW struct {
	baseRecord
	DataType     Type
	MaxRec       int32
	vxrHead      writeRecord
	vxrTail      writeRecord
	RecordVaries bool
	cpr          writeRecord
	Num          int32
	NumElems     int32
	Name         string
	ZDimSizes    []int32
	DimVarys     []int32
	next         writeRecord
}

func (r *vdrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordZVDR))
	e.putOffset(linkNext(r.next))
	e.putI32(int32(r.DataType))
	e.putI32(r.MaxRec)
	e.putOffset(linkNext(r.vxrHead))
	e.putOffset(linkNext(r.vxrTail))
	flags := uint32(0)
	if r.RecordVaries {
		flags |= 0x1
	}
	if r.cpr != nil {
		flags |= 0x4
	}
	e.putU32(flags)
	e.putZero(4) // SRecords
	e.putZero(4) // rfuB
	e.putZero(4) // rfuC
	e.putZero(4) // rfuF (v3 int32)
	e.putI32(r.NumElems)
	e.putI32(r.Num)
	if r.cpr != nil {
		e.putOffset(r.cpr.self())
	} else {
		e.putOffset(-1)
	}
	e.putI32(0) // BlockingFactor
	e.putStr(r.Name, 256)
	e.putI32(int32(len(r.ZDimSizes)))
	e.putI32Table(r.ZDimSizes)
	e.putI32Table(r.DimVarys)
	return e.bytes()
}

func newVDRw(t Type, name string, num int32, numElems int32, zDims, dimVarys []int32, maxRec int32, recordVaries bool) *vdrW {
	r := &vdrW{DataType: t, Name: name, Num: num, NumElems: numElems, ZDimSizes: zDims, DimVarys: dimVarys, MaxRec: maxRec, RecordVaries: recordVaries}
	r.typ = RecordZVDR
	r.size = recordHeaderSize(true) + 4*8 + 11*4 + 256 + 8*int64(len(zDims))
	return r
}

type vxrW struct {
	baseRecord
	First, Last []uint32
	Offset      []writeRecord
	next        writeRecord
}

func (r *vxrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordVXR))
	e.putOffset(linkNext(r.next))
	n := uint32(len(r.First))
	e.putU32(n)
	e.putU32(n)
	e.putU32Table(r.First)
	e.putU32Table(r.Last)
	for _, o := range r.Offset {
		e.putOffset(o.self())
	}
	return e.bytes()
}

func newVXRw(first, last []uint32, offset []writeRecord) *vxrW {
	r := &vxrW{First: first, Last: last, Offset: offset}
	r.typ = RecordVXR
	r.size = recordHeaderSize(true) + 8 + 8 + 16*int64(len(first))
	return r
}

type cprW struct {
	baseRecord
	CType CompressionType
}

func (r *cprW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordCPR))
	e.putI32(int32(r.CType))
	e.putZero(4)
	e.putU32(0)
	return e.bytes()
}

func newCPRw(ct CompressionType) *cprW {
	r := &cprW{CType: ct}
	r.typ = RecordCPR
	r.size = recordHeaderSize(true) + 4 + 4 + 4
	return r
}

type vvrW struct {
	baseRecord
	Data []byte
}

func (r *vvrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordVVR))
	e.buf.Write(r.Data)
	return e.bytes()
}

func newVVRw(data []byte) *vvrW {
	r := &vvrW{Data: data}
	r.typ = RecordVVR
	r.size = recordHeaderSize(true) + int64(len(data))
	return r
}

type cvvrW struct {
	baseRecord
	Data []byte
}

func (r *cvvrW) encode() []byte {
	e := newEncoder(true)
	e.putU64(uint64(r.size))
	e.putI32(int32(RecordCVVR))
	e.putZero(4)
	e.putOffset(int64(len(r.Data)))
	e.buf.Write(r.Data)
	return e.bytes()
}

func newCVVRw(data []byte) *cvvrW {
	r := &cvvrW{Data: data}
	r.typ = RecordCVVR
	r.size = recordHeaderSize(true) + 4 + 8 + int64(len(data))
	return r
}

// linkAEDRChain sets each entry's next pointer to the following one.
func linkAEDRChain(entries []*aedrW) {
	for i := 0; i+1 < len(entries); i++ {
		entries[i].next = entries[i+1]
	}
}

func collectVariableAttrNames(c *CDF) []string {
	seen := make(map[string]bool)
	var order []string
	for _, vname := range c.Variables() {
		v, _ := c.Variable(vname)
		names := make([]string, 0, len(v.Attributes))
		for n := range v.Attributes {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
		}
	}
	return order
}

// Save serialises c to sink following the Build/Size/Layout/Link/Emit
// pipeline (spec.md §4.10). The writer always emits zVDRs (never rVDRs)
// and always stores records in row-major order on disk, matching
// original_source's saver: the in-memory Values buffer is already the
// canonical row-major linearisation (spec.md §9 item 4), so no majority
// swap is applied on write regardless of c.Majority.
func Save(c *CDF, sink io.Writer, opts Options) error {
	gdr := newGDRw()
	cdr := newCDRw(gdr)
	records := []writeRecord{cdr, gdr}

	globalNames := c.Attributes()
	varAttrNames := collectVariableAttrNames(c)
	varNames := c.Variables()
	varNum := make(map[string]int32, len(varNames))
	for i, name := range varNames {
		varNum[name] = int32(i)
	}

	var chain []*adrW
	attrIdx := int32(0)

	for _, name := range globalNames {
		attr, _ := c.Attribute(name)
		adr := newADRw(ScopeGlobal, attrIdx, name)
		adr.NgrEntries = int32(len(attr.Entries))
		records = append(records, adr)
		chain = append(chain, adr)

		entries := make([]*aedrW, 0, len(attr.Entries))
		for _, v := range attr.Entries {
			e := newAEDRw(RecordAgrEDR, attrIdx, 0, v)
			records = append(records, e)
			entries = append(entries, e)
		}
		linkAEDRChain(entries)
		if len(entries) > 0 {
			adr.agrEDRHead = entries[0]
		}
		attrIdx++
	}

	zVDRNodes := make([]*vdrW, 0, len(varNames))
	for _, name := range varNames {
		v, _ := c.Variable(name)
		vdr, err := buildVariableRecords(&records, v, varNum[name])
		if err != nil {
			return fmt.Errorf("cdf: building variable %q: %w", name, err)
		}
		zVDRNodes = append(zVDRNodes, vdr)
	}
	for i := 0; i+1 < len(zVDRNodes); i++ {
		zVDRNodes[i].next = zVDRNodes[i+1]
	}

	for _, name := range varAttrNames {
		adr := newADRw(ScopeVariable, attrIdx, name)
		records = append(records, adr)
		chain = append(chain, adr)

		entries := make([]*aedrW, 0, len(varNames))
		for _, vname := range varNames {
			v, _ := c.Variable(vname)
			va, ok := v.Attributes[name]
			if !ok {
				continue
			}
			e := newAEDRw(RecordAzEDR, attrIdx, varNum[vname], va.Value)
			records = append(records, e)
			entries = append(entries, e)
		}
		linkAEDRChain(entries)
		if len(entries) > 0 {
			adr.azEDRHead = entries[0]
		}
		adr.NzEntries = int32(len(entries))
		attrIdx++
	}

	for i := 0; i+1 < len(chain); i++ {
		chain[i].next = chain[i+1]
	}

	gdr.NumAttr = uint32(len(chain))
	gdr.NzVars = uint32(len(zVDRNodes))
	gdr.LeapSecondLastUpdated = c.LeapSecondLastUpdated
	if len(chain) > 0 {
		gdr.adrHead = chain[0]
	}
	if len(zVDRNodes) > 0 {
		gdr.zvdrHead = zVDRNodes[0]
	}

	cur := int64(8)
	for _, r := range records {
		r.setSelf(cur)
		cur += r.recSize()
	}
	gdr.EOF = cur

	body := make([]byte, 0, cur-8)
	for _, r := range records {
		body = append(body, r.encode()...)
	}

	if opts.Compression == CompressionNone {
		if _, err := sink.Write([]byte{0xCD, 0xF3, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xFF}); err != nil {
			return err
		}
		_, err := sink.Write(body)
		return err
	}

	compressed, err := deflate(opts.Compression, body)
	if err != nil {
		return fmt.Errorf("cdf: compressing body: %w", err)
	}
	ccrHeaderLen := recordHeaderSize(true) + 8 + 8 + 4
	cpr := newCPRw(opts.Compression)
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

	if _, err := sink.Write([]byte{0xCD, 0xF3, 0x00, 0x01, 0xCC, 0xCC, 0x00, 0x01}); err != nil {
		return err
	}
	if _, err := sink.Write(ccrE.bytes()); err != nil {
		return err
	}
	_, err = sink.Write(cpr.encode())
	return err
}

// buildVariableRecords constructs the zVDR, optional CPR, VVR/CVVR chunk
// records, and the single VXR indexing them for one variable, appends them
// to *records in that (layout) order, and returns the zVDR node.
func buildVariableRecords(records *[]writeRecord, v *Variable, num int32) (*vdrW, error) {
	values, err := v.Get()
	if err != nil {
		return nil, err
	}
	raw := encodeValuePayload(values)

	dims := v.Shape
	if len(dims) == 0 {
		return nil, fmt.Errorf("cdf: variable %q has no shape", v.Name)
	}
	recordCountN := dims[0]
	perRecordDims := dims[1:]

	isString := values.Type.IsString()
	numElems := int32(1)
	zDims := make([]int32, 0, len(perRecordDims))
	if isString && len(perRecordDims) > 0 {
		numElems = int32(perRecordDims[len(perRecordDims)-1])
		for _, d := range perRecordDims[:len(perRecordDims)-1] {
			zDims = append(zDims, int32(d))
		}
	} else {
		for _, d := range perRecordDims {
			zDims = append(zDims, int32(d))
		}
	}
	dimVarys := make([]int32, len(zDims))
	for i := range dimVarys {
		dimVarys[i] = 1
	}

	recordSizeBytes := int64(0)
	if recordCountN > 0 {
		recordSizeBytes = int64(len(raw)) / int64(recordCountN)
	}

	maxRec := int32(recordCountN - 1)
	vdr := newVDRw(values.Type, v.Name, num, numElems, zDims, dimVarys, maxRec, v.RecordVariance)
	*records = append(*records, vdr)

	if v.Compression != CompressionNone {
		cpr := newCPRw(v.Compression)
		*records = append(*records, cpr)
		vdr.cpr = cpr
	}

	chunkRecords := int64(1)
	if recordSizeBytes > 0 {
		chunkRecords = maxRawBlockSize / recordSizeBytes
		if chunkRecords < 1 {
			chunkRecords = 1
		}
	}

	var first, last []uint32
	var offsets []writeRecord
	for start := int64(0); start < int64(recordCountN); start += chunkRecords {
		end := start + chunkRecords
		if end > int64(recordCountN) {
			end = int64(recordCountN)
		}
		chunk := raw[start*recordSizeBytes : end*recordSizeBytes]
		var node writeRecord
		if v.Compression != CompressionNone {
			packed, err := deflate(v.Compression, chunk)
			if err != nil {
				return nil, fmt.Errorf("compressing chunk: %w", err)
			}
			node = newCVVRw(packed)
		} else {
			node = newVVRw(chunk)
		}
		*records = append(*records, node)
		first = append(first, uint32(start))
		last = append(last, uint32(end-1))
		offsets = append(offsets, node)
	}
	vxr := newVXRw(first, last, offsets)
	*records = append(*records, vxr)
	vdr.vxrHead = vxr
	vdr.vxrTail = vxr
	return vdr, nil
}
