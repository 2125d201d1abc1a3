// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "testing"

func TestOptionsMaxVXRDepth(t *testing.T) {
	if got := (Options{}).maxVXRDepth(); got != DefaultMaxVXRDepth {
		t.Errorf("maxVXRDepth() with zero value = %d, want %d", got, DefaultMaxVXRDepth)
	}
	if got := (Options{MaxVXRDepth: 4}).maxVXRDepth(); got != 4 {
		t.Errorf("maxVXRDepth() with explicit value = %d, want 4", got)
	}
}
