// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "fmt"

// RecordType is the record_type tag common to every on-disk record header
// (spec.md §3.2, §6.1).
type RecordType int32

// The record catalogue. SPR and UIR are recognised only as opaque
// placeholders and are never emitted by the writer.
const (
	RecordCDR    RecordType = 1
	RecordGDR    RecordType = 2
	RecordRVDR   RecordType = 3
	RecordADR    RecordType = 4
	RecordAgrEDR RecordType = 5
	RecordVXR    RecordType = 6
	RecordVVR    RecordType = 7
	RecordZVDR   RecordType = 8
	RecordAzEDR  RecordType = 9
	RecordCCR    RecordType = 10
	RecordCPR    RecordType = 11
	RecordSPR    RecordType = 12
	RecordCVVR   RecordType = 13
	RecordUIR    RecordType = -1
)

func (t RecordType) String() string {
	switch t {
	case RecordCDR:
		return "CDR"
	case RecordGDR:
		return "GDR"
	case RecordRVDR:
		return "rVDR"
	case RecordADR:
		return "ADR"
	case RecordAgrEDR:
		return "AgrEDR"
	case RecordVXR:
		return "VXR"
	case RecordVVR:
		return "VVR"
	case RecordZVDR:
		return "zVDR"
	case RecordAzEDR:
		return "AzEDR"
	case RecordCCR:
		return "CCR"
	case RecordCPR:
		return "CPR"
	case RecordSPR:
		return "SPR"
	case RecordCVVR:
		return "CVVR"
	case RecordUIR:
		return "UIR"
	default:
		return fmt.Sprintf("RecordType(%d)", int32(t))
	}
}

// AttrScope is the ADR.scope field.
type AttrScope int32

const (
	ScopeGlobal          AttrScope = 1
	ScopeVariable        AttrScope = 2
	ScopeGlobalAssumed   AttrScope = 3
	ScopeVariableAssumed AttrScope = 4
)

func (s AttrScope) IsGlobal() bool   { return s == ScopeGlobal || s == ScopeGlobalAssumed }
func (s AttrScope) IsVariable() bool { return s == ScopeVariable || s == ScopeVariableAssumed }

func (s AttrScope) valid() bool {
	switch s {
	case ScopeGlobal, ScopeVariable, ScopeGlobalAssumed, ScopeVariableAssumed:
		return true
	default:
		return false
	}
}

// CompressionType is the CPR.cType field (spec.md §6.1).
type CompressionType int32

const (
	CompressionNone CompressionType = 0
	CompressionRLE  CompressionType = 1
	CompressionHuff CompressionType = 2
	CompressionAHuf CompressionType = 3
	CompressionGzip CompressionType = 5
	CompressionZstd CompressionType = 16
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionHuff:
		return "huffman"
	case CompressionAHuf:
		return "adaptive-huffman"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("CompressionType(%d)", int32(c))
	}
}

// supported reports whether the reader/writer can decompress this kind.
// Huffman and Adaptive Huffman are defined by the format but have no
// decoder in the reference implementation (spec.md §9 open question 2).
func (c CompressionType) supported() bool {
	switch c {
	case CompressionNone, CompressionRLE, CompressionGzip, CompressionZstd:
		return true
	default:
		return false
	}
}

// Encoding is the CDR.Encoding field, identifying the byte order (and
// historically the source architecture) of value payloads.
type Encoding int32

const (
	EncodingNetwork    Encoding = 1
	EncodingSUN        Encoding = 2
	EncodingVAX        Encoding = 3
	EncodingDecstation Encoding = 4
	EncodingSGi        Encoding = 5
	EncodingIBMPC      Encoding = 6
	EncodingIBMRS      Encoding = 7
	EncodingPPC        Encoding = 9
	EncodingHP         Encoding = 11
	EncodingNeXT       Encoding = 12
	EncodingAlphaOSF1  Encoding = 13
	EncodingAlphaVMSd  Encoding = 14
	EncodingAlphaVMSg  Encoding = 15
	EncodingAlphaVMSi  Encoding = 16
	EncodingARMLittle  Encoding = 17
	EncodingARMBig     Encoding = 18
	EncodingIA64VMSi   Encoding = 19
	EncodingIA64VMSd   Encoding = 20
	EncodingIA64VMSg   Encoding = 21
)

// bigEndian reports whether value payloads stored under this encoding are
// big-endian on disk. Descriptor fields are always big-endian regardless
// of this value (spec.md §6.1).
func (e Encoding) bigEndian() bool {
	switch e {
	case EncodingNetwork, EncodingSUN, EncodingNeXT, EncodingPPC, EncodingSGi, EncodingIBMRS, EncodingARMBig:
		return true
	default:
		return false
	}
}

// Magic words (spec.md §6.1).
const (
	magic1Mask    = 0xFFF00000
	magic2Uncompr = 0x0000FFFF
	magic2Compr   = 0xCCCC0001
)

// recordHeaderSize returns the byte width of a record header (record_size
// field width + 4-byte record_type) for the given version.
func recordHeaderSize(v3 bool) int64 {
	if v3 {
		return 12
	}
	return 8
}

// offsetFieldSize returns the byte width of an absolute-offset field.
func offsetFieldSize(v3 bool) int64 {
	if v3 {
		return 8
	}
	return 4
}
