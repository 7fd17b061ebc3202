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

// EdgeReferences returns the number of leading and trailing positions
// of an Mnv where the reference base equals the alternate base. For
// other categories, it returns 0, 0. The two counts never overlap: an
// Mnv that is reference everywhere has lead == len(Ref) and trail == 0.
func EdgeReferences(allele *Allele) (lead, trail int) {
	if allele.Category != Mnv {
		return 0, 0
	}
	n := len(allele.Ref)
	for lead < n && allele.Ref[lead] == allele.Alt[lead] {
		lead++
	}
	for trail < n-lead && allele.Ref[n-1-trail] == allele.Alt[n-1-trail] {
		trail++
	}
	return lead, trail
}

// BreakOffEdgeReferences splits the leading and trailing positions of
// an Mnv where reference equals alternate off into standalone
// Reference alleles, each carrying a copy of the Mnv's support. The
// remaining middle span, if any, is returned with its category
// re-derived from its length. Alleles other than Mnvs are returned
// unchanged as a single element. The result is ordered by position.
func BreakOffEdgeReferences(allele Allele) []Allele {
	lead, trail := EdgeReferences(&allele)
	if lead == 0 && trail == 0 {
		return []Allele{allele}
	}
	n := len(allele.Ref)
	result := make([]Allele, 0, lead+trail+1)
	for k := 0; k < lead; k++ {
		result = append(result, allele.Slice(k, 1))
	}
	if middle := n - lead - trail; middle > 0 {
		result = append(result, allele.Slice(lead, middle))
	}
	for k := n - trail; k < n; k++ {
		result = append(result, allele.Slice(k, 1))
	}
	return result
}
