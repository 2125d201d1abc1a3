// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

import "github.com/rs/zerolog"

// Further anomalies, beyond the ones logged inline in attribute.go and
// variable.go (AnoVariableAttrCollision, AnoUnknownRecordSkipped), detected
// by a post-decode structural scan once the whole graph is available. These
// describe files that load successfully but look unusual, the same role
// the teacher's GetAnomalies plays for a PE binary's header fields.
const (
	// AnoEmptyGlobalAttribute is reported when a global attribute owns no
	// entries (ADR.NgrEntries == 0).
	AnoEmptyGlobalAttribute = "global attribute has no entries"

	// AnoNoVariables is reported when a CDF decodes with zero variables.
	AnoNoVariables = "CDF has no variables"

	// AnoDoubleCompression is reported when a variable carries its own
	// per-record compression inside a whole-body-compressed file; the
	// second pass buys nothing and most tools only expect one.
	AnoDoubleCompression = "variable is individually compressed inside an already whole-body-compressed file"

	// AnoZeroRecordVariable is reported when a record-varying variable
	// resolves to zero logical records.
	AnoZeroRecordVariable = "record-varying variable has zero records"
)

// addAnomaly appends anomaly to c.Anomalies unless already present, mirroring
// the teacher's File.addAnomaly/stringInSlice pattern.
func addAnomaly(c *CDF, anomaly string) {
	if !stringInSlice(anomaly, c.Anomalies) {
		c.Anomalies = append(c.Anomalies, anomaly)
	}
}

func stringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// checkAnomalies scans a fully decoded CDF for conditions that are valid
// but unusual, logging each one and recording it into c.Anomalies. Called
// once at the end of Load.
func checkAnomalies(c *CDF, logger zerolog.Logger) {
	if len(c.varOrder) == 0 {
		logger.Warn().Msg(AnoNoVariables)
		addAnomaly(c, AnoNoVariables)
	}

	bodyCompressed := c.Compression != CompressionNone
	for _, name := range c.attrOrder {
		if len(c.attrs[name].Entries) == 0 {
			logger.Warn().Str("attribute", name).Msg(AnoEmptyGlobalAttribute)
			addAnomaly(c, AnoEmptyGlobalAttribute)
		}
	}
	for _, name := range c.varOrder {
		v := c.vars[name]
		if bodyCompressed && v.Compression != CompressionNone {
			logger.Warn().Str("variable", name).Msg(AnoDoubleCompression)
			addAnomaly(c, AnoDoubleCompression)
		}
		if v.RecordVariance && len(v.Shape) > 0 && v.Shape[0] == 0 {
			logger.Debug().Str("variable", name).Msg(AnoZeroRecordVariable)
			addAnomaly(c, AnoZeroRecordVariable)
		}
	}
}
