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

/*
Package realloc reconsiders multi-base candidates that could not be
called as they are.

The support of such a failed candidate is moved onto already called
alleles that it can be decomposed into. Parts of the candidate that no
called allele explains become new standalone candidates, and parts
that lie beyond the current block boundary are handed over to the
next block.
*/
package realloc

import (
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/exascience/elcall/alleles"
)

const noBoundary = math.MaxInt32

// Result is the outcome of one reallocation pass.
type Result struct {
	// Emitted holds new standalone candidates that are final for the
	// current block, and the insertions and deletions that were passed
	// through. Alleles with the same key are merged, their support summed.
	Emitted []alleles.Allele

	// Leftovers holds the parts of failed candidates at or beyond the
	// block boundary, to be processed with the next block. Reference
	// edges of such parts are kept as separate Reference alleles.
	Leftovers []alleles.Allele
}

/*
Reallocate processes failed candidates against the called alleles of
the same neighborhood.

Each failed Snv or Mnv is decomposed into called Snvs and Mnvs that
match it exactly at their own position, ignoring the leading and
trailing positions where the candidate equals the reference. The
decomposition that leaves the fewest variant positions unexplained
wins; among those, the one with the fewest matched alleles, and then
the one whose matched alleles have the most support. Every matched
allele receives the full support of the failed candidate. Unexplained
variant stretches become new candidates in Result.Emitted, each with
the full support of the failed candidate. Stretches that match the
reference are dropped.

Insertions and deletions are passed through to Result.Emitted,
Reference alleles are dropped.

The called set is modified in place. The result does not depend on
the order of the failed candidates.
*/
func Reallocate(failed []alleles.Allele, called *alleles.CalledSet) Result {
	return reallocate(failed, called, noBoundary)
}

/*
ReallocateBefore is like Reallocate, but nothing at or beyond the
given exclusive block boundary is finalized.

Only called alleles that start before the boundary take part in
decompositions. The unexplained part of a failed candidate from the
boundary (or from the end of its last match, if that is further) up to
its end is returned in Result.Leftovers when it still contains a
variant position; its reference edges are split off as separate
Reference leftovers. Insertions and deletions at or beyond the
boundary become leftovers as a whole.
*/
func ReallocateBefore(failed []alleles.Allele, called *alleles.CalledSet, boundary int32) Result {
	return reallocate(failed, called, boundary)
}

func canonicalOrder(failed []alleles.Allele) []alleles.Allele {
	ordered := append([]alleles.Allele(nil), failed...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if a.Key() != b.Key() {
			return a.Less(b)
		}
		return a.Support.Less(b.Support)
	})
	return ordered
}

type reallocator struct {
	called   *alleles.CalledSet
	boundary int32
	emitted  map[alleles.Key]int
	result   Result
}

func reallocate(failed []alleles.Allele, called *alleles.CalledSet, boundary int32) Result {
	r := reallocator{
		called:   called,
		boundary: boundary,
		emitted:  make(map[alleles.Key]int),
	}
	for _, f := range canonicalOrder(failed) {
		switch f.Category {
		case alleles.Snv, alleles.Mnv:
			r.reallocate(&f)
		case alleles.Insertion, alleles.Deletion:
			if f.Pos >= boundary {
				r.result.Leftovers = append(r.result.Leftovers, f)
			} else {
				r.emit(f)
			}
		case alleles.Reference:
		}
	}
	alleles.Sort(r.result.Emitted)
	alleles.Sort(r.result.Leftovers)
	return r.result
}

func (r *reallocator) emit(allele alleles.Allele) {
	if index, ok := r.emitted[allele.Key()]; ok {
		r.result.Emitted[index].Support.Add(allele.Support)
		return
	}
	r.emitted[allele.Key()] = len(r.result.Emitted)
	r.result.Emitted = append(r.result.Emitted, allele)
}

// match is a called allele that explains the failed candidate exactly
// at some offset.
type match struct {
	length  int
	support int
	handle  alleles.Handle
}

// matches returns, per offset into the failed candidate, the called
// alleles of the same contig that fit into the offset range [lo, hi),
// longest first.
// Of several alleles of the same length at the same offset, only the
// one with the most support is kept.
func (r *reallocator) matches(f *alleles.Allele, lo, hi int) map[int][]match {
	result := make(map[int][]match)
	for _, h := range r.called.Contained(f.Pos+int32(lo), f.Pos+int32(hi)-1) {
		a := r.called.At(h)
		if a.Chrom != f.Chrom || !a.Category.IsSubstitution() || a.Pos >= r.boundary || len(a.Ref) != len(a.Alt) {
			continue
		}
		offset := int(a.Pos - f.Pos)
		end := offset + len(a.Ref)
		if f.Ref[offset:end] != a.Ref || f.Alt[offset:end] != a.Alt {
			continue
		}
		m := match{length: len(a.Ref), support: a.Support.Total(), handle: h}
		ms := result[offset]
		replaced := false
		for i := range ms {
			if ms[i].length == m.length {
				if m.support > ms[i].support {
					ms[i] = m
				}
				replaced = true
				break
			}
		}
		if !replaced {
			ms = append(ms, m)
		}
		result[offset] = ms
	}
	for _, ms := range result {
		sort.Slice(ms, func(i, j int) bool { return ms[i].length > ms[j].length })
	}
	return result
}

// choice is the best decomposition of a suffix of the failed candidate.
type choice struct {
	uncovered int // variant positions not explained by a match
	matched   int // number of matches used
	support   int // summed support of the matches used
	length    int // length of the match taken first, 0 for none
	handle    alleles.Handle
}

func (c *choice) better(other *choice) bool {
	switch {
	case c.uncovered != other.uncovered:
		return c.uncovered < other.uncovered
	case c.matched != other.matched:
		return c.matched < other.matched
	case c.support != other.support:
		return c.support > other.support
	default:
		return c.length > other.length
	}
}

// decompose finds the best decomposition of the offset range [lo, hi)
// by dynamic programming over suffixes. best[i-lo] is the best
// decomposition of [i, hi).
func decompose(f *alleles.Allele, lo, hi int, matches map[int][]match) []choice {
	best := make([]choice, hi-lo+1)
	for i := hi - 1; i >= lo; i-- {
		next := &best[i+1-lo]
		c := choice{uncovered: next.uncovered, matched: next.matched, support: next.support}
		if f.Ref[i] != f.Alt[i] {
			c.uncovered++
		}
		for _, m := range matches[i] {
			next := &best[i+m.length-lo]
			candidate := choice{
				uncovered: next.uncovered,
				matched:   next.matched + 1,
				support:   next.support + m.support,
				length:    m.length,
				handle:    m.handle,
			}
			if candidate.better(&c) {
				c = candidate
			}
		}
		best[i-lo] = c
	}
	return best
}

func (r *reallocator) reallocate(f *alleles.Allele) {
	n := len(f.Ref)
	lead, trail := alleles.EdgeReferences(f)
	if lead == n {
		return
	}
	lo, hi := lead, n-trail
	best := decompose(f, lo, hi, r.matches(f, lo, hi))

	uncovered := bitset.New(uint(n))
	matchEnd := 0
	for i := lo; i < hi; {
		if c := &best[i-lo]; c.length > 0 {
			r.called.At(c.handle).Support.Add(f.Support)
			i += c.length
			matchEnd = i
		} else {
			if f.Ref[i] != f.Alt[i] {
				uncovered.Set(uint(i))
			}
			i++
		}
	}

	leftoverStart := n
	if r.boundary != noBoundary {
		leftoverStart = int(r.boundary - f.Pos)
		if leftoverStart < 0 {
			leftoverStart = 0
		} else if leftoverStart > n {
			leftoverStart = n
		}
		if matchEnd > leftoverStart {
			leftoverStart = matchEnd
		}
	}

	// unexplained variant stretches before the leftover part
	for i := lo; i < leftoverStart; {
		if !uncovered.Test(uint(i)) {
			i++
			continue
		}
		j := i + 1
		for j < leftoverStart && uncovered.Test(uint(j)) {
			j++
		}
		r.emit(f.Slice(i, j-i))
		i = j
	}

	if leftoverStart < n {
		leftover := f.Slice(leftoverStart, n-leftoverStart)
		if leftover.IsVariant() {
			r.result.Leftovers = append(r.result.Leftovers, alleles.BreakOffEdgeReferences(leftover)...)
		}
	}
}
