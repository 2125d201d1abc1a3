// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// ByteSource is uniform random-access read access over a file, a memory
// map, or an in-memory slice. Implementations must be safe to share: many
// lazy Variables plus the top-level CDF may read through the same
// ByteSource concurrently with each other (spec.md §4.1, §5).
type ByteSource interface {
	// ReadInto copies len(dst) bytes starting at offset into dst. It
	// returns ErrOutOfRange if [offset, offset+len(dst)) falls outside the
	// source, and ErrShortRead if the underlying resource ends early.
	ReadInto(dst []byte, offset int64) error

	// View returns a borrowed byte slice covering [offset, offset+n). For
	// memory-backed and memory-mapped sources this is a zero-copy slice of
	// the backing array; callers must not retain it past the lifetime of
	// the ByteSource and must not mutate it.
	View(offset int64, n int64) ([]byte, error)

	// Size returns the total length of the source in bytes.
	Size() int64

	// Close releases any OS resources (file descriptors, mappings) held by
	// the source. Safe to call multiple times.
	Close() error
}

// memorySource is a ByteSource backed by an in-memory byte slice. It never
// blocks (spec.md §5).
type memorySource struct {
	data []byte
}

// NewMemorySource wraps an in-memory buffer as a ByteSource. The buffer is
// not copied; the caller must not mutate it while the source is in use.
func NewMemorySource(data []byte) ByteSource {
	return &memorySource{data: data}
}

func (s *memorySource) Size() int64 { return int64(len(s.data)) }

func (s *memorySource) bounds(offset, n int64) error {
	if offset < 0 || n < 0 || offset > s.Size()-n {
		if n == 0 && offset >= 0 && offset <= s.Size() {
			return nil
		}
		return &outOfRangeError{Offset: offset, Len: n, Size: s.Size()}
	}
	return nil
}

func (s *memorySource) ReadInto(dst []byte, offset int64) error {
	n := int64(len(dst))
	if err := s.bounds(offset, n); err != nil {
		return err
	}
	copy(dst, s.data[offset:offset+n])
	return nil
}

func (s *memorySource) View(offset, n int64) ([]byte, error) {
	if err := s.bounds(offset, n); err != nil {
		return nil, err
	}
	return s.data[offset : offset+n], nil
}

func (s *memorySource) Close() error { return nil }

// mmapSource is a ByteSource backed by a memory-mapped file. Reads never
// copy beyond what View's caller asks for; ReadInto copies out of the
// mapping into the caller's buffer.
type mmapSource struct {
	f    *os.File
	data mmap.MMap
}

// NewFileSource memory-maps the file at path read-only and returns a
// ByteSource over its contents.
func NewFileSource(path string) (ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mmapSource{f: f, data: data}, nil
}

func (s *mmapSource) Size() int64 { return int64(len(s.data)) }

func (s *mmapSource) bounds(offset, n int64) error {
	if offset < 0 || n < 0 || offset > s.Size()-n {
		if n == 0 && offset >= 0 && offset <= s.Size() {
			return nil
		}
		return &outOfRangeError{Offset: offset, Len: n, Size: s.Size()}
	}
	return nil
}

func (s *mmapSource) ReadInto(dst []byte, offset int64) error {
	n := int64(len(dst))
	if err := s.bounds(offset, n); err != nil {
		return err
	}
	copy(dst, s.data[offset:offset+n])
	return nil
}

func (s *mmapSource) View(offset, n int64) ([]byte, error) {
	if err := s.bounds(offset, n); err != nil {
		return nil, err
	}
	return s.data[offset : offset+n], nil
}

func (s *mmapSource) Close() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
	}
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}
