// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"fmt"
	"os"
)

// CDF is the decoded in-memory container: every global attribute and
// variable the record graph reaches, plus the file-level scalars (spec.md
// §4.11). Attribute and variable iteration order follows the chain order
// the records were linked in on disk (ADRnext, then zVDRnext/rVDRnext).
type CDF struct {
	Majority              Majority
	Compression           CompressionType
	DistributionVersion   [2]uint32
	LeapSecondLastUpdated uint32
	Anomalies             []string

	attrOrder []string
	attrs     map[string]*Attribute
	varOrder  []string
	vars      map[string]*Variable
	closer    ByteSource
}

func newCDF() *CDF {
	return &CDF{
		attrs: make(map[string]*Attribute),
		vars:  make(map[string]*Variable),
	}
}

// Attributes returns global attribute names in insertion (ADRnext) order.
func (c *CDF) Attributes() []string { return append([]string(nil), c.attrOrder...) }

// Variables returns variable names in insertion (zVDRnext then rVDRnext)
// order.
func (c *CDF) Variables() []string { return append([]string(nil), c.varOrder...) }

// Attribute looks up a global attribute by name.
func (c *CDF) Attribute(name string) (*Attribute, error) {
	a, ok := c.attrs[name]
	if !ok {
		return nil, &KeyNotFoundError{Name: name}
	}
	return a, nil
}

// Variable looks up a variable by name.
func (c *CDF) Variable(name string) (*Variable, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, &KeyNotFoundError{Name: name}
	}
	return v, nil
}

// AddAttribute appends a new global attribute. It fails with
// DuplicateError if name already exists.
func (c *CDF) AddAttribute(name string, entries []Values) error {
	if _, exists := c.attrs[name]; exists {
		return &DuplicateError{Name: name}
	}
	c.attrs[name] = &Attribute{Name: name, Entries: entries}
	c.attrOrder = append(c.attrOrder, name)
	return nil
}

// AddVariable appends a new variable. It fails with DuplicateError if name
// already exists, or ErrShapeMismatch if values.Len() doesn't match the
// product of shape.
func (c *CDF) AddVariable(name string, values Values, shape []int, isNRV bool, compression CompressionType) error {
	if _, exists := c.vars[name]; exists {
		return &DuplicateError{Name: name}
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	if values.Type.IsString() {
		if len(shape) == 0 || n != values.Len() {
			return fmt.Errorf("cdf: variable %q: %w", name, ErrShapeMismatch)
		}
	} else if n*values.Type.Size() != len(values.Raw) {
		return fmt.Errorf("cdf: variable %q: %w", name, ErrShapeMismatch)
	}
	c.vars[name] = &Variable{
		Name:           name,
		Num:            len(c.varOrder),
		IsZVariable:    true,
		Shape:          shape,
		RecordVariance: !isNRV,
		Compression:    compression,
		Values:         values,
		Attributes:     make(map[string]VariableAttribute),
	}
	c.varOrder = append(c.varOrder, name)
	return nil
}

// Equal reports whether c and other describe the same attributes and
// variables (spec.md §4.11): matching attribute entries, and matching
// variable name/shape/compression/record-variance/type/bytes. Majority is
// deliberately excluded, mirroring the reference's row-major-on-disk
// canonicalisation (spec.md §9 item 4).
func (c *CDF) Equal(other *CDF) bool {
	if other == nil {
		return false
	}
	if c.LeapSecondLastUpdated != other.LeapSecondLastUpdated {
		return false
	}
	if len(c.attrs) != len(other.attrs) {
		return false
	}
	for name, a := range c.attrs {
		b, ok := other.attrs[name]
		if !ok || !attributeEqual(a, b) {
			return false
		}
	}
	if len(c.vars) != len(other.vars) {
		return false
	}
	for name, v := range c.vars {
		w, ok := other.vars[name]
		if !ok || !variableEqual(v, w) {
			return false
		}
	}
	return true
}

func attributeEqual(a, b *Attribute) bool {
	if len(a.Entries) != len(b.Entries) {
		return false
	}
	for i := range a.Entries {
		if a.Entries[i].Type != b.Entries[i].Type || !bytes.Equal(a.Entries[i].Raw, b.Entries[i].Raw) {
			return false
		}
	}
	return true
}

func variableEqual(v, w *Variable) bool {
	if len(v.Shape) != len(w.Shape) {
		return false
	}
	for i := range v.Shape {
		if v.Shape[i] != w.Shape[i] {
			return false
		}
	}
	if v.Compression != w.Compression || v.RecordVariance != w.RecordVariance {
		return false
	}
	va, err := v.Get()
	if err != nil {
		return false
	}
	wa, err := w.Get()
	if err != nil {
		return false
	}
	return va.Type == wa.Type && bytes.Equal(va.Raw, wa.Raw)
}

// Load decodes a complete CDF from src (spec.md §4.3-§4.7, §6.2).
func Load(src ByteSource, opts Options) (*CDF, error) {
	magic, err := readMagic(src)
	if err != nil {
		return nil, err
	}
	v3, compressed, err := detectVersion(magic)
	if err != nil {
		return nil, err
	}

	body, err := openBody(src, v3, compressed)
	if err != nil {
		return nil, err
	}
	if body != src {
		defer body.Close()
	}

	c, ver, err := decodeCDR(body, 8, v3)
	if err != nil {
		return nil, fmt.Errorf("cdf: decoding CDR: %w", err)
	}
	g, err := decodeGDR(body, c.GDRoffset, ver)
	if err != nil {
		return nil, fmt.Errorf("cdf: decoding GDR: %w", err)
	}

	out := newCDF()
	out.Compression = CompressionNone
	if compressed {
		cp, err := decodeCPR(src, mustCCRCPROffset(src, v3), v3)
		if err == nil {
			out.Compression = cp.CType
		}
	}
	out.Majority = MajorityColumn
	if c.rowMajor() {
		out.Majority = MajorityRow
	}
	out.LeapSecondLastUpdated = g.LeapSecondLastUpdated
	out.DistributionVersion = [2]uint32{c.Version, c.Release}

	global, globalOrder, varAttrs, err := loadAttributes(body, ver, g, c.Encoding, &out.Anomalies, opts.Logger)
	if err != nil {
		return nil, err
	}
	for _, name := range globalOrder {
		out.attrs[name] = global[name]
	}
	out.attrOrder = globalOrder
	if opts.UTF8Transcode {
		for _, a := range global {
			for i := range a.Entries {
				a.Entries[i] = transcodeIfString(a.Entries[i])
			}
		}
		for _, m := range varAttrs {
			for name, va := range m {
				va.Value = transcodeIfString(va.Value)
				m[name] = va
			}
		}
	}

	maxDepth := opts.maxVXRDepth()
	loadKind := func(head int64, isZ bool) error {
		it := newVDRIterator(body, ver, head, isZ, int(g.RNumDims))
		for {
			vd, ok := it.Next()
			if !ok {
				break
			}
			variable, err := loadVariable(body, ver, vd, isZ, g.RDimSizes, c.Encoding, out.Majority, maxDepth, opts.Lazy, &out.Anomalies, opts.Logger)
			if err != nil {
				opts.Logger.Warn().Err(err).Str("variable", vd.Name).Msg(AnoDataDirectoryParseFailed)
				addAnomaly(out, AnoDataDirectoryParseFailed)
				continue
			}
			target := varAttrTarget{isZ: isZ, index: vd.Num}
			if m, ok := varAttrs[target]; ok {
				variable.Attributes = m
			} else {
				variable.Attributes = make(map[string]VariableAttribute)
			}
			if opts.UTF8Transcode {
				applyTranscode(variable)
			}
			if _, dup := out.vars[vd.Name]; dup {
				return &DuplicateError{Name: vd.Name}
			}
			out.vars[vd.Name] = variable
			out.varOrder = append(out.varOrder, vd.Name)
		}
		if it.err != nil {
			return it.err
		}
		return nil
	}
	if err := loadKind(g.ZVDRhead, true); err != nil {
		return nil, err
	}
	if err := loadKind(g.RVDRhead, false); err != nil {
		return nil, err
	}

	checkAnomalies(out, opts.Logger)
	return out, nil
}

// Open memory-maps path and decodes it, mirroring the teacher's New(name,
// opts) entry point (spec.md §6.2: "source is path, byte slice, or owned
// buffer"). The returned CDF keeps the mapping open for lazy variables;
// call Close when done with it.
func Open(path string, opts Options) (*CDF, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	c, err := Load(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	if opts.Lazy {
		c.closer = src
	} else {
		src.Close()
	}
	return c, nil
}

// OpenBytes decodes an in-memory CDF image, mirroring the teacher's
// NewBytes(data, opts) entry point.
func OpenBytes(data []byte, opts Options) (*CDF, error) {
	return Load(NewMemorySource(data), opts)
}

// Close releases any byte source Open opened on c's behalf. It is a no-op
// for a CDF built in memory or loaded eagerly.
func (c *CDF) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// SaveFile serialises c to a new file at path, mirroring Save but taking a
// path the way the teacher's dumper writes reports to a path (spec.md
// §6.2: "sink is path or growable byte buffer").
func SaveFile(c *CDF, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(c, f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// applyTranscode wraps a variable's materialized (or lazy) value with the
// Latin-1 -> UTF-8 pass, deferring it through the loader when the variable
// hasn't been materialized yet so lazy variables stay lazy.
func applyTranscode(v *Variable) {
	if v.loader != nil {
		inner := v.loader
		v.loader = func() (Values, error) {
			vals, err := inner()
			if err != nil {
				return Values{}, err
			}
			return transcodeIfString(vals), nil
		}
		return
	}
	v.Values = transcodeIfString(v.Values)
}

// mustCCRCPROffset re-reads the CCR wrapping the body and returns the
// offset of the CPR it declares, or -1 if the CCR cannot be decoded; Load
// decodes that CPR to report CDF.Compression. openBody already validated
// and consumed this record once.
func mustCCRCPROffset(src ByteSource, v3 bool) int64 {
	c, err := decodeCCR(src, 8, v3)
	if err != nil {
		return -1
	}
	return c.CPRoffset
}
