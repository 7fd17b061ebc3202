// elCall: a high-performance tool for calling variants from SAM/BAM files.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package candidates

import "fmt"

// Policy holds the quality and length parameters of candidate detection.
type Policy struct {
	// MinBaseQuality is the minimum Phred score of a base that may
	// take part in a call.
	MinBaseQuality byte

	// MaxLengthMnv bounds the length of any single emitted Snv or Mnv.
	MaxLengthMnv int

	// MaxLengthInterveningRef bounds the number of consecutive
	// reference-matching bases that may be absorbed inside a run.
	MaxLengthInterveningRef int
}

// DefaultPolicy returns the parameters used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MinBaseQuality:          20,
		MaxLengthMnv:            3,
		MaxLengthInterveningRef: 1,
	}
}

// Validate checks that the policy parameters are usable.
func (p Policy) Validate() error {
	if p.MaxLengthMnv < 1 {
		return fmt.Errorf("invalid maximum MNV length %v, must be at least 1", p.MaxLengthMnv)
	}
	if p.MaxLengthInterveningRef < 0 {
		return fmt.Errorf("invalid maximum intervening reference length %v, must not be negative", p.MaxLengthInterveningRef)
	}
	return nil
}
