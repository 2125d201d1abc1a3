// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "fmt"

// Type is a CDF primitive data type code, as stored in a VDR's DataType
// field or an AEDR's DataType field.
type Type uint32

// Primitive type codes. Time types (Epoch, Epoch16, TT2000) are distinct
// storage from integers/floats of the same width so downstream callers can
// tell them apart.
const (
	TypeNone    Type = 0
	TypeInt1    Type = 1
	TypeInt2    Type = 2
	TypeInt4    Type = 4
	TypeInt8    Type = 8
	TypeUint1   Type = 11
	TypeUint2   Type = 12
	TypeUint4   Type = 14
	TypeByte    Type = 41
	TypeReal4   Type = 21
	TypeReal8   Type = 22
	TypeFloat   Type = 44
	TypeDouble  Type = 45
	TypeEpoch   Type = 31
	TypeEpoch16 Type = 32
	TypeTT2000  Type = 33
	TypeChar    Type = 51
	TypeUChar   Type = 52
)

// Size returns the on-disk byte width of a single element of t, or 0 if t
// is not a recognised type.
func (t Type) Size() int {
	switch t {
	case TypeInt1, TypeUint1, TypeByte, TypeChar, TypeUChar:
		return 1
	case TypeInt2, TypeUint2:
		return 2
	case TypeInt4, TypeUint4, TypeFloat, TypeReal4:
		return 4
	case TypeInt8, TypeReal8, TypeDouble, TypeEpoch, TypeTT2000:
		return 8
	case TypeEpoch16:
		return 16
	default:
		return 0
	}
}

// IsString reports whether t stores its elements as packed character code
// units, where the last array dimension is the string length.
func (t Type) IsString() bool {
	return t == TypeChar || t == TypeUChar
}

// Valid reports whether t is one of the 17 type codes the format defines.
func (t Type) Valid() bool {
	return t.Size() != 0
}

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "CDF_NONE"
	case TypeInt1:
		return "CDF_INT1"
	case TypeInt2:
		return "CDF_INT2"
	case TypeInt4:
		return "CDF_INT4"
	case TypeInt8:
		return "CDF_INT8"
	case TypeUint1:
		return "CDF_UINT1"
	case TypeUint2:
		return "CDF_UINT2"
	case TypeUint4:
		return "CDF_UINT4"
	case TypeByte:
		return "CDF_BYTE"
	case TypeReal4:
		return "CDF_REAL4"
	case TypeReal8:
		return "CDF_REAL8"
	case TypeFloat:
		return "CDF_FLOAT"
	case TypeDouble:
		return "CDF_DOUBLE"
	case TypeEpoch:
		return "CDF_EPOCH"
	case TypeEpoch16:
		return "CDF_EPOCH16"
	case TypeTT2000:
		return "CDF_TIME_TT2000"
	case TypeChar:
		return "CDF_CHAR"
	case TypeUChar:
		return "CDF_UCHAR"
	default:
		return fmt.Sprintf("CDF_Type(%d)", uint32(t))
	}
}

// Epoch is the CDF_EPOCH time representation: milliseconds since
// 01-Jan-0000 00:00:00.000. Conversion to/from civil time is out of scope
// (spec.md §1); the value is carried opaquely.
type Epoch float64

// Epoch16 is the CDF_EPOCH16 time representation: a pair of (seconds,
// picoseconds) since 01-Jan-0000 00:00:00.000.000.000.
type Epoch16 struct {
	Seconds     float64
	Picoseconds float64
}

// TT2000 is the CDF_TIME_TT2000 time representation: nanoseconds since
// J2000 (01-Jan-2000 12:00:00 TT), including leap seconds. Leap-second
// tables are out of scope; the value is carried opaquely.
type TT2000 int64
