// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers should use errors.Is against these rather than
// comparing error values directly, since Load/Save wrap them with context.
var (
	// ErrNotACDF is returned when the magic bytes don't match the CDF format.
	ErrNotACDF = errors.New("cdf: not a CDF file")

	// ErrUnsupportedVersion is returned when the magic indicates a file
	// format version outside what this package supports (v2.x, v3.x).
	ErrUnsupportedVersion = errors.New("cdf: unsupported file version")

	// ErrUnsupportedCompression is returned for Huffman/Adaptive Huffman
	// compression types, or any unrecognised compression tag.
	ErrUnsupportedCompression = errors.New("cdf: unsupported compression type")

	// ErrBadCompressedData is returned when a compression codec rejects a
	// payload or produces an unexpected byte count.
	ErrBadCompressedData = errors.New("cdf: bad compressed data")

	// ErrShapeMismatch is returned when a variable's assembled byte count
	// doesn't match record_count * record_size.
	ErrShapeMismatch = errors.New("cdf: variable shape mismatch")

	// ErrShortRead is returned when a byte source can't satisfy a read
	// request because the underlying resource ended early.
	ErrShortRead = errors.New("cdf: short read")

	// ErrOutOfRange is returned when a read is attempted outside the bounds
	// of the byte source.
	ErrOutOfRange = errors.New("cdf: read out of range")
)

// BadRecordError is returned when a record header's type tag doesn't match
// the set of types expected at the position being decoded.
type BadRecordError struct {
	At   int64
	Want []RecordType
	Got  RecordType
}

func (e *BadRecordError) Error() string {
	return fmt.Sprintf("cdf: bad record at offset %d: want one of %v, got %v", e.At, e.Want, e.Got)
}

// InvalidEnumError is returned when an enum-valued field holds a code this
// package doesn't recognise.
type InvalidEnumError struct {
	Field string
	Value int32
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("cdf: invalid value %d for enum field %q", e.Value, e.Field)
}

// DuplicateError is returned by AddAttribute/AddVariable when name already
// exists.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("cdf: duplicate name %q", e.Name)
}

// KeyNotFoundError is returned when subscripting a missing attribute or
// variable name.
type KeyNotFoundError struct {
	Name string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("cdf: key not found: %q", e.Name)
}

// outOfRangeError reports exactly which read exceeded the byte source.
type outOfRangeError struct {
	Offset int64
	Len    int64
	Size   int64
}

func (e *outOfRangeError) Error() string {
	return fmt.Sprintf("cdf: read [%d:%d) out of range for source of size %d", e.Offset, e.Offset+e.Len, e.Size)
}

func (e *outOfRangeError) Unwrap() error { return ErrOutOfRange }
