// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cdf

// Fuzz decodes data as a CDF image, exercising Load the way the teacher's
// Fuzz exercised Parse. It returns 1 to prioritise the corpus entry when
// decoding succeeds, 0 otherwise.
func Fuzz(data []byte) int {
	c, err := OpenBytes(data, Options{UTF8Transcode: true})
	if err != nil {
		return 0
	}
	for _, name := range c.Variables() {
		v, err := c.Variable(name)
		if err != nil {
			return 0
		}
		if _, err := v.Get(); err != nil {
			return 0
		}
	}
	return 1
}
