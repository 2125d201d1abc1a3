// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "testing"

func TestAttrScopeClassification(t *testing.T) {
	tests := []struct {
		scope      AttrScope
		wantGlobal bool
		wantVar    bool
		wantValid  bool
	}{
		{ScopeGlobal, true, false, true},
		{ScopeGlobalAssumed, true, false, true},
		{ScopeVariable, false, true, true},
		{ScopeVariableAssumed, false, true, true},
		{AttrScope(0), false, false, false},
	}
	for _, tt := range tests {
		if got := tt.scope.IsGlobal(); got != tt.wantGlobal {
			t.Errorf("AttrScope(%d).IsGlobal() = %v, want %v", tt.scope, got, tt.wantGlobal)
		}
		if got := tt.scope.IsVariable(); got != tt.wantVar {
			t.Errorf("AttrScope(%d).IsVariable() = %v, want %v", tt.scope, got, tt.wantVar)
		}
		if got := tt.scope.valid(); got != tt.wantValid {
			t.Errorf("AttrScope(%d).valid() = %v, want %v", tt.scope, got, tt.wantValid)
		}
	}
}

func TestAEDRPayloadLen(t *testing.T) {
	e := &aedr{DataType: TypeInt4, NumElements: 3}
	if got := e.payloadLen(); got != 12 {
		t.Errorf("payloadLen(int4, 3 elements) = %d, want 12", got)
	}
	str := &aedr{DataType: TypeChar, NumElements: 7}
	if got := str.payloadLen(); got != 7 {
		t.Errorf("payloadLen(char, 7 elements) = %d, want 7", got)
	}
}
