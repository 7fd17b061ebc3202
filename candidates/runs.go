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

/*
A run tracks a stretch of mismatching positions inside one match
operation, possibly with some reference-matching positions folded in
between the mismatches.

A run is opened by the first hit. Every following hit extends it, and
every following reference match increments the intervening counter.
Once that counter exceeds the allowed maximum, the run must be closed.
When closed, the run always ends at its last hit: reference matches
after the last hit never become part of it.
*/
type run struct {
	open        bool
	start       int32 // reference position of the first hit
	readStart   int   // read index of the first hit
	lastHit     int32 // reference position of the last hit
	intervening int   // consecutive reference matches since lastHit
}

// hit records a mismatch at the given reference position and read index.
func (r *run) hit(pos int32, readIndex int) {
	if !r.open {
		r.open = true
		r.start = pos
		r.readStart = readIndex
	}
	r.lastHit = pos
	r.intervening = 0
}

// reference records a reference-matching base. It reports whether
// the run must now be closed.
func (r *run) reference(maxIntervening int) bool {
	if !r.open {
		return false
	}
	r.intervening++
	return r.intervening > maxIntervening
}

// length returns the number of positions between the first and the
// last hit, both included.
func (r *run) length() int {
	return int(r.lastHit-r.start) + 1
}

func (r *run) reset() {
	*r = run{}
}

// chunks partitions a run of the given length into consecutive
// [offset, end) slices of at most maxLength positions each.
func chunks(length, maxLength int, f func(offset, end int)) {
	for offset := 0; offset < length; offset += maxLength {
		end := offset + maxLength
		if end > length {
			end = length
		}
		f(offset, end)
	}
}
