// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"fmt"

	"github.com/rs/zerolog"
)

// adr is the decoded Attribute Descriptor Record (spec.md §3.3, §4.4).
type adr struct {
	Self         int64
	ADRnext      int64
	AgrEDRhead   int64
	Scope        AttrScope
	Num          int32
	NgrEntries   int32
	MAXgrEntries int32
	AzEDRhead    int64
	NzEntries    int32
	MAXzEntries  int32
	Name         string
}

func decodeADR(src ByteSource, off int64, ver version) (*adr, error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != RecordADR {
		return nil, &BadRecordError{At: off, Want: []RecordType{RecordADR}, Got: typ}
	}
	a := &adr{Self: off}
	a.ADRnext = d.offsetField()
	a.AgrEDRhead = d.offsetField()
	a.Scope = AttrScope(d.i32())
	a.Num = d.i32()
	a.NgrEntries = d.i32()
	a.MAXgrEntries = d.i32()
	d.skip(4) // rfuA
	a.AzEDRhead = d.offsetField()
	a.NzEntries = d.i32()
	a.MAXzEntries = d.i32()
	d.skip(4) // rfuE
	a.Name = d.str(ver.nameLen())
	if d.err != nil {
		return nil, d.err
	}
	if !a.Scope.valid() {
		return nil, &InvalidEnumError{Field: "ADR.scope", Value: int32(a.Scope)}
	}
	return a, nil
}

// adrIterator walks the ADR chain rooted at GDR.ADRhead along ADRnext,
// yielding records in the file's chain order (spec.md §4.4, §4.9 ordering).
type adrIterator struct {
	src  ByteSource
	ver  version
	next int64
	err  error
}

func newADRIterator(src ByteSource, ver version, head int64) *adrIterator {
	return &adrIterator{src: src, ver: ver, next: head}
}

func (it *adrIterator) Next() (*adr, bool) {
	if it.err != nil || it.next == 0 {
		return nil, false
	}
	a, err := decodeADR(it.src, it.next, it.ver)
	if err != nil {
		it.err = err
		return nil, false
	}
	it.next = a.ADRnext
	return a, true
}

// aedr is the decoded Attribute Entry Descriptor Record, common layout for
// both the r-entry (AgrEDR) and z-entry (AzEDR) variants (spec.md §3.3).
type aedr struct {
	Self        int64
	AEDRnext    int64
	AttrNum     int32
	DataType    Type
	Num         int32 // target r/z-variable index for variable-scoped entries
	NumElements int32
	NumStrings  int32
	valuesOff   int64
}

func decodeAEDR(src ByteSource, off int64, ver version, want RecordType) (*aedr, error) {
	d := newDecoder(src, off, ver.v3)
	_, typ := readHeader(d)
	if typ != want {
		return nil, &BadRecordError{At: off, Want: []RecordType{want}, Got: typ}
	}
	e := &aedr{Self: off}
	e.AEDRnext = d.offsetField()
	e.AttrNum = d.i32()
	e.DataType = Type(d.i32())
	e.Num = d.i32()
	e.NumElements = d.i32()
	e.NumStrings = d.i32()
	d.skip(4) // rfB
	d.skip(4) // rfC
	d.skip(4) // rfD
	d.skip(4) // rfE
	e.valuesOff = d.pos()
	if d.err != nil {
		return nil, d.err
	}
	if !e.DataType.Valid() {
		return nil, &InvalidEnumError{Field: "AEDR.DataType", Value: int32(e.DataType)}
	}
	return e, nil
}

// aedrIterator walks an AEDR chain (AgrEDR or AzEDR, discriminated by kind)
// along AEDRnext (spec.md §4.4).
type aedrIterator struct {
	src  ByteSource
	ver  version
	kind RecordType
	next int64
	err  error
}

func newAEDRIterator(src ByteSource, ver version, head int64, kind RecordType) *aedrIterator {
	return &aedrIterator{src: src, ver: ver, kind: kind, next: head}
}

func (it *aedrIterator) Next() (*aedr, bool) {
	if it.err != nil || it.next == 0 {
		return nil, false
	}
	e, err := decodeAEDR(it.src, it.next, it.ver, it.kind)
	if err != nil {
		it.err = err
		return nil, false
	}
	it.next = e.AEDRnext
	return e, true
}

// payloadLen returns the byte length of an entry's value payload (spec.md
// §4.7): NumElements elements of DataType, or NumElements raw bytes for
// string types.
func (e *aedr) payloadLen() int64 {
	if e.DataType.IsString() {
		return int64(e.NumElements)
	}
	return int64(e.NumElements) * int64(e.DataType.Size())
}

func decodeAEDRValues(src ByteSource, e *aedr, enc Encoding) (Values, error) {
	raw, err := src.View(e.valuesOff, e.payloadLen())
	if err != nil {
		return Values{}, err
	}
	return decodeValuePayload(raw, e.DataType, enc), nil
}

// Attribute is a global attribute: an ordered list of typed entries, one
// per AgrEDR reached off its ADR, matching the source's "vector of
// data_t" model rather than a single scalar value (original_source
// attribute.hpp).
type Attribute struct {
	Name    string
	Entries []Values
}

// VariableAttribute is the single value a variable-scoped attribute
// contributes to one variable. Unlike global Attribute, each (attribute
// name, variable) pair holds at most one entry.
type VariableAttribute struct {
	Name  string
	Value Values
}

// loadAttributes walks the ADR chain and splits entries into global
// attributes (ordered lists, attached to the CDF itself) and variable
// attributes (one map per variable, attached by Load as each variable is
// decoded). It
// returns the global attribute list in chain order and a by-name-by-index
// table of variable-attribute entries keyed by (isZ, variable index) for
// the caller to fold into each Variable after variables are decoded
// (spec.md §4.4 step, §4.5, §9 open question 1).
type varAttrTarget struct {
	isZ   bool
	index int
}

func loadAttributes(src ByteSource, ver version, g *gdr, enc Encoding, anomalies *[]string, logger zerolog.Logger) (
	global map[string]*Attribute,
	globalOrder []string,
	varAttrs map[varAttrTarget]map[string]VariableAttribute,
	err error,
) {
	global = make(map[string]*Attribute)
	varAttrs = make(map[varAttrTarget]map[string]VariableAttribute)

	it := newADRIterator(src, ver, g.ADRhead)
	for {
		a, ok := it.Next()
		if !ok {
			break
		}
		switch {
		case a.Scope.IsGlobal():
			attr := &Attribute{Name: a.Name}
			eit := newAEDRIterator(src, ver, a.AgrEDRhead, RecordAgrEDR)
			for {
				e, ok := eit.Next()
				if !ok {
					break
				}
				v, derr := decodeAEDRValues(src, e, enc)
				if derr != nil {
					return nil, nil, nil, fmt.Errorf("cdf: decoding AgrEDR for attribute %q: %w", a.Name, derr)
				}
				attr.Entries = append(attr.Entries, v)
			}
			if eit.err != nil {
				return nil, nil, nil, fmt.Errorf("cdf: walking AgrEDR chain for attribute %q: %w", a.Name, eit.err)
			}
			global[a.Name] = attr
			globalOrder = append(globalOrder, a.Name)

		case a.Scope.IsVariable():
			for _, kind := range []struct {
				rec  RecordType
				head int64
				isZ  bool
			}{
				{RecordAzEDR, a.AzEDRhead, true},
				{RecordAgrEDR, a.AgrEDRhead, false},
			} {
				eit := newAEDRIterator(src, ver, kind.head, kind.rec)
				for {
					e, ok := eit.Next()
					if !ok {
						break
					}
					v, derr := decodeAEDRValues(src, e, enc)
					if derr != nil {
						return nil, nil, nil, fmt.Errorf("cdf: decoding variable-attribute entry for %q: %w", a.Name, derr)
					}
					target := varAttrTarget{isZ: kind.isZ, index: int(e.Num)}
					m, ok := varAttrs[target]
					if !ok {
						m = make(map[string]VariableAttribute)
						varAttrs[target] = m
					}
					if _, dup := m[a.Name]; dup {
						logger.Warn().Str("attribute", a.Name).Int32("variable_index", e.Num).Msg(AnoVariableAttrCollision)
						*anomalies = append(*anomalies, fmt.Sprintf("%s: %s (variable index %d)", AnoVariableAttrCollision, a.Name, e.Num))
					}
					m[a.Name] = VariableAttribute{Name: a.Name, Value: v}
				}
				if eit.err != nil {
					return nil, nil, nil, fmt.Errorf("cdf: walking attribute-entry chain for %q: %w", a.Name, eit.err)
				}
			}

		default:
			return nil, nil, nil, &InvalidEnumError{Field: "ADR.scope", Value: int32(a.Scope)}
		}
	}
	if it.err != nil {
		return nil, nil, nil, fmt.Errorf("cdf: walking ADR chain: %w", it.err)
	}
	return global, globalOrder, varAttrs, nil
}
