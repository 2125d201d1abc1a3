// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemorySourceReadInto(t *testing.T) {
	src := NewMemorySource([]byte{0, 1, 2, 3, 4, 5})
	buf := make([]byte, 3)
	if err := src.ReadInto(buf, 2); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if !bytes.Equal(buf, []byte{2, 3, 4}) {
		t.Errorf("ReadInto = %v, want [2 3 4]", buf)
	}
}

func TestMemorySourceOutOfRange(t *testing.T) {
	src := NewMemorySource([]byte{0, 1, 2})
	buf := make([]byte, 4)
	err := src.ReadInto(buf, 0)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ReadInto past end: err = %v, want ErrOutOfRange", err)
	}
	_, err = src.View(1, 10)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("View past end: err = %v, want ErrOutOfRange", err)
	}
}

func TestMemorySourceView(t *testing.T) {
	src := NewMemorySource([]byte{10, 20, 30, 40})
	view, err := src.View(1, 2)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !bytes.Equal(view, []byte{20, 30}) {
		t.Errorf("View = %v, want [20 30]", view)
	}
}

func TestMemorySourceSize(t *testing.T) {
	src := NewMemorySource([]byte{1, 2, 3})
	if got := src.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}

func TestMemorySourceZeroLengthAtEnd(t *testing.T) {
	src := NewMemorySource([]byte{1, 2, 3})
	if err := src.ReadInto(nil, 3); err != nil {
		t.Errorf("zero-length read at end of source: %v", err)
	}
}
