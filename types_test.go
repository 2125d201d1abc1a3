// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "testing"

func TestTypeSize(t *testing.T) {
	tests := []struct {
		in  Type
		out int
	}{
		{TypeInt1, 1},
		{TypeUint1, 1},
		{TypeByte, 1},
		{TypeChar, 1},
		{TypeUChar, 1},
		{TypeInt2, 2},
		{TypeUint2, 2},
		{TypeInt4, 4},
		{TypeUint4, 4},
		{TypeFloat, 4},
		{TypeReal4, 4},
		{TypeInt8, 8},
		{TypeReal8, 8},
		{TypeDouble, 8},
		{TypeEpoch, 8},
		{TypeTT2000, 8},
		{TypeEpoch16, 16},
		{TypeNone, 0},
		{Type(999), 0},
	}
	for _, tt := range tests {
		if got := tt.in.Size(); got != tt.out {
			t.Errorf("Type(%d).Size() = %d, want %d", tt.in, got, tt.out)
		}
	}
}

func TestTypeIsString(t *testing.T) {
	tests := []struct {
		in  Type
		out bool
	}{
		{TypeChar, true},
		{TypeUChar, true},
		{TypeInt4, false},
		{TypeEpoch, false},
	}
	for _, tt := range tests {
		if got := tt.in.IsString(); got != tt.out {
			t.Errorf("Type(%d).IsString() = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestTypeValid(t *testing.T) {
	tests := []struct {
		in  Type
		out bool
	}{
		{TypeInt4, true},
		{TypeEpoch16, true},
		{Type(0), false},
		{Type(100), false},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.out {
			t.Errorf("Type(%d).Valid() = %v, want %v", tt.in, got, tt.out)
		}
	}
}
