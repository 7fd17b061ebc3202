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

package caller

import (
	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elcall/alignment"
	"github.com/exascience/elcall/alleles"
	"github.com/exascience/elcall/candidates"
)

type partialCounts struct {
	counts map[alleles.Key]*alleles.Allele
	err    error
}

func (p *partialCounts) add(allele alleles.Allele) {
	if existing, ok := p.counts[allele.Key()]; ok {
		existing.Support.Add(allele.Support)
		return
	}
	p.counts[allele.Key()] = &allele
}

// merge folds other into p. Errors of p take precedence, so that the
// error of the earliest read wins.
func (p *partialCounts) merge(other *partialCounts) *partialCounts {
	if p.err != nil {
		return p
	}
	if other.err != nil {
		return other
	}
	if len(p.counts) < len(other.counts) {
		p.counts, other.counts = other.counts, p.counts
	}
	for _, allele := range other.counts {
		p.add(*allele)
	}
	return p
}

// Aggregate runs candidate detection on all reads in parallel and sums
// the support of candidates with the same key. The result is sorted by
// position. ref is the contig all reads are aligned to.
func Aggregate(reads []*alignment.Record, ref []byte, policy candidates.Policy) ([]alleles.Allele, error) {
	finder, err := candidates.NewFinder(policy)
	if err != nil {
		return nil, err
	}
	if len(reads) == 0 {
		return nil, nil
	}
	result := parallel.RangeReduce(0, len(reads), 0, func(low, high int) interface{} {
		partial := &partialCounts{counts: make(map[alleles.Key]*alleles.Allele)}
		var buf []alleles.Allele
		for _, rec := range reads[low:high] {
			buf, partial.err = finder.Append(buf[:0], rec, ref)
			if partial.err != nil {
				return partial
			}
			for _, allele := range buf {
				partial.add(allele)
			}
		}
		return partial
	}, func(x, y interface{}) interface{} {
		return x.(*partialCounts).merge(y.(*partialCounts))
	}).(*partialCounts)
	if result.err != nil {
		return nil, result.err
	}
	aggregated := make([]alleles.Allele, 0, len(result.counts))
	for _, allele := range result.counts {
		aggregated = append(aggregated, *allele)
	}
	alleles.ParallelSort(aggregated)
	return aggregated, nil
}
