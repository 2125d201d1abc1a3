// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import (
	"errors"
	"strings"
	"testing"
)

func TestBadRecordErrorMessage(t *testing.T) {
	err := &BadRecordError{At: 128, Want: []RecordType{RecordVVR, RecordCVVR}, Got: RecordADR}
	msg := err.Error()
	for _, want := range []string{"128", "ADR", "VVR"} {
		if !strings.Contains(msg, want) {
			t.Errorf("BadRecordError.Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestInvalidEnumErrorMessage(t *testing.T) {
	err := &InvalidEnumError{Field: "Majority", Value: 7}
	msg := err.Error()
	if !strings.Contains(msg, "Majority") || !strings.Contains(msg, "7") {
		t.Errorf("InvalidEnumError.Error() = %q, want it to mention field and value", msg)
	}
}

func TestDuplicateErrorMessage(t *testing.T) {
	err := &DuplicateError{Name: "mission"}
	if !strings.Contains(err.Error(), "mission") {
		t.Errorf("DuplicateError.Error() = %q, want it to mention the name", err.Error())
	}
}

func TestKeyNotFoundErrorMessage(t *testing.T) {
	err := &KeyNotFoundError{Name: "density"}
	if !strings.Contains(err.Error(), "density") {
		t.Errorf("KeyNotFoundError.Error() = %q, want it to mention the name", err.Error())
	}
}

func TestOutOfRangeErrorUnwrap(t *testing.T) {
	err := &outOfRangeError{Offset: 10, Len: 4, Size: 8}
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("outOfRangeError does not unwrap to ErrOutOfRange")
	}
	msg := err.Error()
	for _, want := range []string{"10", "14", "8"} {
		if !strings.Contains(msg, want) {
			t.Errorf("outOfRangeError.Error() = %q, want it to contain %q", msg, want)
		}
	}
}
