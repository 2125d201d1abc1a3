// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse; per klauspost/compress's
// own guidance the decoder is meant to be kept warm across calls rather
// than constructed per-use.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("cdf: failed to create zstd decoder: %v", err))
		}
		return dec
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("cdf: failed to create zstd encoder: %v", err))
		}
		return enc
	},
}

// inflate decompresses input using the named compression kind, returning
// the decompressed bytes. The caller (variable assembly or body parsing)
// knows the expected output length from the record graph and should treat
// a mismatch as ErrBadCompressedData (spec.md §4.8).
func inflate(kind CompressionType, input []byte) ([]byte, error) {
	switch kind {
	case CompressionNone:
		return append([]byte(nil), input...), nil
	case CompressionRLE:
		return rleInflate(input), nil
	case CompressionGzip:
		r, err := kgzip.NewReader(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("cdf: gzip: %w: %v", ErrBadCompressedData, err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("cdf: gzip: %w: %v", ErrBadCompressedData, err)
		}
		return out, nil
	case CompressionZstd:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(input, nil)
		if err != nil {
			return nil, fmt.Errorf("cdf: zstd: %w: %v", ErrBadCompressedData, err)
		}
		return out, nil
	case CompressionHuff, CompressionAHuf:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, kind)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, kind)
	}
}

// deflate compresses input using the named compression kind.
func deflate(kind CompressionType, input []byte) ([]byte, error) {
	switch kind {
	case CompressionNone:
		return append([]byte(nil), input...), nil
	case CompressionRLE:
		return rleDeflate(input), nil
	case CompressionGzip:
		var buf bytes.Buffer
		w, err := kgzip.NewWriterLevel(&buf, kgzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(input); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(input, nil), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, kind)
	}
}

// rleInflate expands the CDF run-length scheme (spec.md §4.8): a zero byte
// followed by a count byte n expands to n+1 zero bytes; any other byte is
// a literal.
func rleInflate(input []byte) []byte {
	out := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		b := input[i]
		if b == 0 && i+1 < len(input) {
			count := int(input[i+1]) + 1
			for k := 0; k < count; k++ {
				out = append(out, 0)
			}
			i++
			continue
		}
		out = append(out, b)
	}
	return out
}

// rleDeflate is the inverse of rleInflate: runs of zero bytes of length k
// (capped at 256 per run) emit 0x00, k-1; non-zero bytes emit literally.
func rleDeflate(input []byte) []byte {
	const maxRun = 256
	out := make([]byte, 0, len(input))
	i := 0
	for i < len(input) {
		if input[i] != 0 {
			out = append(out, input[i])
			i++
			continue
		}
		run := 0
		for i < len(input) && input[i] == 0 && run < maxRun {
			run++
			i++
		}
		out = append(out, 0, byte(run-1))
	}
	return out
}
