// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "github.com/rs/zerolog"

// DefaultMaxVXRDepth bounds how deeply a VXR subtree may nest before Load
// gives up, guarding against a malformed or cyclic-looking record graph
// (mirrors the teacher's MaxCOFFSymbolsCount-style load-bounding options).
const DefaultMaxVXRDepth = 64

// Options configures Load and Save, mirroring the teacher's pe.Options:
// a small struct of knobs plus an injectable logger, so library consumers
// can route diagnostics into their own pipeline instead of stdout.
type Options struct {
	// Lazy defers variable value materialization until first access.
	Lazy bool

	// UTF8Transcode applies the Latin-1 -> UTF-8 pass to CDF_CHAR/CDF_UCHAR
	// payloads on read (spec.md §4.5, §4.6 step 7).
	UTF8Transcode bool

	// Logger receives Warn/Debug-level diagnostics for recoverable
	// conditions. The zero value is zerolog's no-op logger.
	Logger zerolog.Logger

	// MaxVXRDepth bounds VXR subtree recursion; zero means
	// DefaultMaxVXRDepth.
	MaxVXRDepth uint32

	// Majority is not read by Load or Save: Load reports the majority
	// declared by CDR.Flags, and Save always writes row-major records.
	Majority Majority

	// Compression controls whole-body compression Save applies; the zero
	// value means CompressionNone.
	Compression CompressionType
}

func (o Options) maxVXRDepth() uint32 {
	if o.MaxVXRDepth == 0 {
		return DefaultMaxVXRDepth
	}
	return o.MaxVXRDepth
}

// Anomalies reported by the reader/writer. These mirror recoverable,
// non-fatal conditions the teacher's anomaly.go catalogues for PE files:
// the graph is still usable, but a caller inspecting Anomalies can see
// what was unusual about the input.
const (
	// AnoVariableAttrCollision is reported when two entries of the same
	// variable attribute target the same variable; per spec.md §9 open
	// question 1, the later entry wins.
	AnoVariableAttrCollision = "variable attribute entry collision: later entry wins"

	// AnoUnknownRecordSkipped is reported when a VXR Offset[i] slot points
	// at a record type that isn't VVR/CVVR/VXR (e.g. SPR/UIR); it is
	// skipped rather than treated as fatal.
	AnoUnknownRecordSkipped = "unexpected record type skipped while walking VXR entries"

	// AnoDataDirectoryParseFailed is reported when a non-fatal substructure
	// fails to parse in non-fast mode; the rest of the graph is still
	// returned, mirroring the teacher's ParseDataDirectories recovery loop.
	AnoDataDirectoryParseFailed = "attribute or variable entry failed to parse and was skipped"
)
