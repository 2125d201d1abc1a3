// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
)

// buildSample constructs a small in-memory CDF: one global attribute, one
// non-string record-varying variable, and one string variable, with a
// variable attribute attached to the first variable.
func buildSample(t *testing.T, compression CompressionType) *CDF {
	t.Helper()
	c := newCDF()

	if err := c.AddAttribute("mission", []Values{
		{Type: TypeChar, Raw: []byte("Voyager")},
	}); err != nil {
		t.Fatalf("AddAttribute: %v", err)
	}

	// Two records of a 3-element int32 vector.
	raw := make([]byte, 2*3*4)
	for i := 0; i < 6; i++ {
		binary.NativeEndian.PutUint32(raw[i*4:], uint32(i*10))
	}
	values := Values{Type: TypeInt4, Raw: raw}
	if err := c.AddVariable("density", values, []int{2, 3}, false, compression); err != nil {
		t.Fatalf("AddVariable(density): %v", err)
	}

	v, err := c.Variable("density")
	if err != nil {
		t.Fatalf("Variable(density): %v", err)
	}
	v.Attributes["units"] = VariableAttribute{
		Name:  "units",
		Value: Values{Type: TypeChar, Raw: []byte("cm^-3")},
	}

	// A record-varying string variable: 2 records of 4-character strings.
	strVals := Values{Type: TypeChar, Raw: []byte("abcdwxyz")}
	if err := c.AddVariable("label", strVals, []int{2, 4}, false, CompressionNone); err != nil {
		t.Fatalf("AddVariable(label): %v", err)
	}

	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []CompressionType{CompressionNone, CompressionRLE, CompressionGzip, CompressionZstd}
	for _, compression := range tests {
		t.Run(compression.String(), func(t *testing.T) {
			c := buildSample(t, compression)

			var buf bytes.Buffer
			if err := Save(c, &buf, Options{}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := OpenBytes(buf.Bytes(), Options{})
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}

			if !c.Equal(got) {
				t.Errorf("round-tripped CDF does not equal the original")
			}

			attr, err := got.Attribute("mission")
			if err != nil {
				t.Fatalf("Attribute(mission): %v", err)
			}
			if len(attr.Entries) != 1 || attr.Entries[0].String() != "Voyager" {
				t.Errorf("mission attribute = %+v, want a single entry \"Voyager\"", attr.Entries)
			}

			v, err := got.Variable("density")
			if err != nil {
				t.Fatalf("Variable(density): %v", err)
			}
			if v.Compression != compression {
				t.Errorf("density.Compression = %v, want %v", v.Compression, compression)
			}
			vals, err := v.Get()
			if err != nil {
				t.Fatalf("Get(density): %v", err)
			}
			if got := vals.Int32(); !equalI32(got, []int32{0, 10, 20, 30, 40, 50}) {
				t.Errorf("density values = %v, want [0 10 20 30 40 50]", got)
			}
			ua, ok := v.Attributes["units"]
			if !ok || ua.Value.String() != "cm^-3" {
				t.Errorf("density.Attributes[units] = %+v, want cm^-3", ua)
			}

			label, err := got.Variable("label")
			if err != nil {
				t.Fatalf("Variable(label): %v", err)
			}
			labelVals, err := label.Get()
			if err != nil {
				t.Fatalf("Get(label): %v", err)
			}
			if got := labelVals.String(); got != "abcdwxyz" {
				t.Errorf("label values = %q, want %q", got, "abcdwxyz")
			}
		})
	}
}

func TestSaveFileOpenRoundTrip(t *testing.T) {
	c := buildSample(t, CompressionNone)
	path := filepath.Join(t.TempDir(), "sample.cdf")
	if err := SaveFile(c, path, Options{}); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer got.Close()

	if !c.Equal(got) {
		t.Errorf("Open(SaveFile(c)) does not equal the original")
	}
}

func TestOpenLazy(t *testing.T) {
	c := buildSample(t, CompressionNone)
	path := filepath.Join(t.TempDir(), "sample.cdf")
	if err := SaveFile(c, path, Options{}); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := Open(path, Options{Lazy: true})
	if err != nil {
		t.Fatalf("Open(Lazy): %v", err)
	}
	v, err := got.Variable("density")
	if err != nil {
		t.Fatalf("Variable(density): %v", err)
	}
	if v.loader == nil {
		t.Fatal("expected a lazily-loaded variable to carry a deferred loader before Get")
	}
	if _, err := v.Get(); err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if v.loader != nil {
		t.Error("loader should be cleared after materialization")
	}
	if err := got.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestAddAttributeDuplicate(t *testing.T) {
	c := newCDF()
	if err := c.AddAttribute("a", nil); err != nil {
		t.Fatalf("AddAttribute: %v", err)
	}
	err := c.AddAttribute("a", nil)
	if _, ok := err.(*DuplicateError); !ok {
		t.Errorf("AddAttribute(duplicate) error = %v, want *DuplicateError", err)
	}
}

func TestAddVariableShapeMismatch(t *testing.T) {
	c := newCDF()
	values := Values{Type: TypeInt4, Raw: make([]byte, 4)}
	err := c.AddVariable("x", values, []int{2, 3}, false, CompressionNone)
	if err == nil {
		t.Fatal("AddVariable with mismatched shape succeeded, want an error")
	}
}

func TestVariableNotFound(t *testing.T) {
	c := newCDF()
	_, err := c.Variable("missing")
	if _, ok := err.(*KeyNotFoundError); !ok {
		t.Errorf("Variable(missing) error = %v, want *KeyNotFoundError", err)
	}
}

func equalI32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
