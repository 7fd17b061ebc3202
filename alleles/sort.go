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
	"sort"

	psort "github.com/exascience/pargo/sort"
)

// Sort sorts a slice of alleles with Allele.Less.
func Sort(alleles []Allele) {
	sort.SliceStable(alleles, func(i, j int) bool {
		return alleles[i].Less(&alleles[j])
	})
}

type stableAlleleSorter []Allele

func (s stableAlleleSorter) SequentialSort(i, j int) {
	Sort(s[i:j])
}

func (s stableAlleleSorter) NewTemp() psort.StableSorter {
	return stableAlleleSorter(make([]Allele, len(s)))
}

func (s stableAlleleSorter) Len() int {
	return len(s)
}

func (s stableAlleleSorter) Less(i, j int) bool {
	return s[i].Less(&s[j])
}

func (s stableAlleleSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableAlleleSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSort sorts a slice of alleles with Allele.Less using a
// parallel stable sort.
func ParallelSort(alleles []Allele) {
	psort.StableSort(stableAlleleSorter(alleles))
}
