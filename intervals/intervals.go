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

// Package intervals handles target regions and block partitions of
// contigs. All intervals are 1-based and closed: Interval{3, 5}
// covers the positions 3, 4, and 5.
package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"
)

// Interval is a closed range of 1-based positions on one contig.
type Interval struct {
	Start, End int32
}

// Len returns the number of positions in the interval.
func (interval Interval) Len() int {
	return int(interval.End-interval.Start) + 1
}

// SortByStart sorts a slice of intervals by start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type byStart []Interval

func (s byStart) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s byStart) NewTemp() psort.StableSorter {
	return make(byStart, len(s))
}

func (s byStart) Len() int {
	return len(s)
}

func (s byStart) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s byStart) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(byStart)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart is like SortByStart, but uses a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(byStart(intervals))
}

// Extend grows the interval to include next if the two overlap or
// are adjacent, and reports whether it did so. next must not start
// before the interval.
func (interval *Interval) Extend(next Interval) bool {
	if next.Start > interval.End+1 {
		return false
	}
	if next.End > interval.End {
		interval.End = next.End
	}
	return true
}

// Flatten merges overlapping and adjacent intervals. The input must
// be sorted by start. The result is sorted by start, its intervals are
// pairwise disjoint and non-adjacent, and it shares memory with the
// input.
func Flatten(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return intervals
	}
	last := 0
	for _, next := range intervals[1:] {
		if !intervals[last].Extend(next) {
			last++
			intervals[last] = next
		}
	}
	return intervals[:last+1]
}

const flattenGrainSize = 0x1000

// ParallelFlatten is like Flatten, but splits large inputs into
// halves that are flattened in parallel.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < flattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) / 2
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Intersect returns the intervals that share at least one position
// with [start, end]. The input must be flattened. The result shares
// memory with the input.
func Intersect(intervals []Interval, start, end int32) []Interval {
	n := len(intervals)
	from := sort.Search(n, func(i int) bool { return intervals[i].End >= start })
	to := sort.Search(n, func(i int) bool { return intervals[i].Start > end })
	if from >= to {
		return nil
	}
	return intervals[from:to]
}

// Overlap reports whether any interval shares a position with
// [start, end]. The input must be flattened.
func Overlap(intervals []Interval, start, end int32) bool {
	return len(Intersect(intervals, start, end)) > 0
}

// Partition splits [start, end] into consecutive blocks of size
// positions each. The last block may be shorter.
func Partition(start, end int32, size int) (blocks []Interval) {
	if size < 1 {
		size = 1
	}
	for blockStart := start; blockStart <= end; {
		blockEnd := blockStart + int32(size) - 1
		if blockEnd > end || blockEnd < blockStart {
			blockEnd = end
		}
		blocks = append(blocks, Interval{Start: blockStart, End: blockEnd})
		if blockEnd == end {
			break
		}
		blockStart = blockEnd + 1
	}
	return blocks
}

// Normalize sorts and flattens every contig's intervals in place.
func Normalize(regions map[string][]Interval) {
	for chrom, ivals := range regions {
		ParallelSortByStart(ivals)
		regions[chrom] = ParallelFlatten(ivals)
	}
}
