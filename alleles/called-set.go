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

package alleles

import (
	"log"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Handle refers to an allele stored in a CalledSet.
type Handle int

/*
CalledSet is an arena of called alleles for one neighborhood.

Alleles are stored in a flat slice and indexed by their start
position, so that they can be looked up by position range and updated
in place through their handle. Removed alleles keep their slot; their
handles are recorded in a bitset and skipped by all queries.

A CalledSet is not safe for concurrent use. The caller owns it for
the duration of one neighborhood's processing.
*/
type CalledSet struct {
	alleles []Allele
	removed *bitset.BitSet
	byStart map[int32][]Handle
}

// NewCalledSet returns a CalledSet containing copies of the given alleles.
func NewCalledSet(alleles ...Allele) *CalledSet {
	set := &CalledSet{
		alleles: make([]Allele, 0, len(alleles)),
		removed: bitset.New(uint(len(alleles))),
		byStart: make(map[int32][]Handle, len(alleles)),
	}
	for _, allele := range alleles {
		set.Add(allele)
	}
	return set
}

// Add stores a copy of allele and returns its handle.
func (set *CalledSet) Add(allele Allele) Handle {
	h := Handle(len(set.alleles))
	set.alleles = append(set.alleles, allele)
	set.byStart[allele.Pos] = append(set.byStart[allele.Pos], h)
	return h
}

// At returns a pointer to the allele with the given handle. The
// pointer is only valid until the next call to Add.
func (set *CalledSet) At(h Handle) *Allele {
	if set.removed.Test(uint(h)) {
		log.Panicf("access to removed allele %v", set.alleles[h])
	}
	return &set.alleles[h]
}

// Remove drops the allele with the given handle from the set.
func (set *CalledSet) Remove(h Handle) {
	set.removed.Set(uint(h))
}

// Len returns the number of alleles in the set that were not removed.
func (set *CalledSet) Len() int {
	return len(set.alleles) - int(set.removed.Count())
}

func (set *CalledSet) live(h Handle) bool {
	return !set.removed.Test(uint(h))
}

// StartingIn returns the handles of all alleles that start in
// [start, end], ordered by position and then by insertion order.
func (set *CalledSet) StartingIn(start, end int32) (handles []Handle) {
	if end-start+1 > int32(len(set.byStart)) {
		// sparse set: scanning the index is cheaper than scanning the range
		for pos, hs := range set.byStart {
			if pos >= start && pos <= end {
				for _, h := range hs {
					if set.live(h) {
						handles = append(handles, h)
					}
				}
			}
		}
		sort.Slice(handles, func(i, j int) bool {
			pi, pj := set.alleles[handles[i]].Pos, set.alleles[handles[j]].Pos
			if pi != pj {
				return pi < pj
			}
			return handles[i] < handles[j]
		})
		return handles
	}
	for pos := start; pos <= end; pos++ {
		for _, h := range set.byStart[pos] {
			if set.live(h) {
				handles = append(handles, h)
			}
		}
	}
	return handles
}

// Contained returns the handles of all alleles whose full span lies
// within [start, end], ordered like StartingIn.
func (set *CalledSet) Contained(start, end int32) []Handle {
	handles := set.StartingIn(start, end)
	i := 0
	for _, h := range handles {
		if set.alleles[h].End() <= end {
			handles[i] = h
			i++
		}
	}
	return handles[:i]
}

// Find returns the handle of the first live allele with the given key.
func (set *CalledSet) Find(key Key) (Handle, bool) {
	for _, h := range set.byStart[key.Pos] {
		if set.live(h) && set.alleles[h].Key() == key {
			return h, true
		}
	}
	return -1, false
}

// Alleles returns copies of all live alleles, sorted by position.
func (set *CalledSet) Alleles() []Allele {
	result := make([]Allele, 0, set.Len())
	for h := range set.alleles {
		if set.live(Handle(h)) {
			result = append(result, set.alleles[h])
		}
	}
	ParallelSort(result)
	return result
}
