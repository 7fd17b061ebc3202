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
Package caller turns aligned reads into called alleles.

Candidates of all reads of a contig are aggregated by key. The contig
is then processed block by block: candidates with enough support are
called, and the remaining Snvs and Mnvs are reallocated against the
calls of their block. Parts of failed candidates that reach into the
next block are handed over to it.
*/
package caller

import (
	"fmt"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elcall/alignment"
	"github.com/exascience/elcall/alleles"
	"github.com/exascience/elcall/candidates"
	"github.com/exascience/elcall/intervals"
	"github.com/exascience/elcall/realloc"
)

// Options control a calling run.
type Options struct {
	Policy candidates.Policy

	// MinSupport is the minimum total support of a called allele.
	MinSupport int

	// BlockSize is the number of positions per processing block.
	BlockSize int

	// Targets optionally restricts the output to alleles that overlap
	// the given normalized regions, per contig. Contigs without
	// entries produce no output. A nil map means no restriction.
	Targets map[string][]intervals.Interval
}

// Validate checks that the options are usable.
func (opts *Options) Validate() error {
	if opts.MinSupport < 1 {
		return fmt.Errorf("invalid minimum support %v, must be at least 1", opts.MinSupport)
	}
	if opts.BlockSize < 1 {
		return fmt.Errorf("invalid block size %v, must be at least 1", opts.BlockSize)
	}
	return opts.Policy.Validate()
}

// Contig holds the reads aligned to one contig, together with the
// contig's reference sequence.
type Contig struct {
	Name  string
	Seq   []byte
	Reads []*alignment.Record
}

func (opts *Options) passes(allele *alleles.Allele) bool {
	return allele.IsVariant() && allele.Support.Total() >= opts.MinSupport
}

func (opts *Options) reported(chrom string, allele *alleles.Allele) bool {
	if opts.Targets == nil {
		return true
	}
	return intervals.Overlap(opts.Targets[chrom], allele.Pos, allele.End())
}

// block is the state of one processing block.
type block struct {
	opts   *Options
	called *alleles.CalledSet
	failed []alleles.Allele
}

func (b *block) add(allele alleles.Allele) {
	switch {
	case b.opts.passes(&allele):
		if h, ok := b.called.Find(allele.Key()); ok {
			b.called.At(h).Support.Add(allele.Support)
		} else {
			b.called.Add(allele)
		}
	case allele.Category.IsSubstitution():
		b.failed = append(b.failed, allele)
	}
}

// addEmitted stores a standalone candidate produced by reallocation.
// It joins an identical call, or is called on its own when it has
// enough support.
func (b *block) addEmitted(allele alleles.Allele) {
	if h, ok := b.called.Find(allele.Key()); ok {
		b.called.At(h).Support.Add(allele.Support)
	} else if b.opts.passes(&allele) {
		b.called.Add(allele)
	}
}

// dropUntargeted removes the calls that lie outside the target regions.
// Alleles are anchored at positions 0 to end.
func (b *block) dropUntargeted(chrom string, end int32) {
	if b.opts.Targets == nil {
		return
	}
	for _, h := range b.called.StartingIn(0, end) {
		if !b.opts.reported(chrom, b.called.At(h)) {
			b.called.Remove(h)
		}
	}
}

// mergeByKey sums the support of alleles with the same key. The input
// must be sorted by position.
func mergeByKey(sorted []alleles.Allele) []alleles.Allele {
	if len(sorted) == 0 {
		return sorted
	}
	merged := sorted[:0]
	index := make(map[alleles.Key]int)
	for _, allele := range sorted {
		if i, ok := index[allele.Key()]; ok {
			merged[i].Support.Add(allele.Support)
			continue
		}
		index[allele.Key()] = len(merged)
		merged = append(merged, allele)
	}
	return merged
}

/*
CallContig calls the alleles of one contig. The result is sorted by
position.

Each block of opts.BlockSize positions receives the aggregated
candidates that start in it, plus the leftovers handed over by the
previous block. The last block is reallocated without a boundary.
*/
func CallContig(contig Contig, opts Options) ([]alleles.Allele, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	aggregated, err := Aggregate(contig.Reads, contig.Seq, opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w, while calling contig %v", err, contig.Name)
	}
	blocks := intervals.Partition(1, int32(len(contig.Seq)), opts.BlockSize)

	var result, pending []alleles.Allele
	next := 0
	for i, blk := range blocks {
		last := i == len(blocks)-1
		for ; next < len(aggregated) && (last || aggregated[next].Pos <= blk.End); next++ {
			pending = append(pending, aggregated[next])
		}
		alleles.Sort(pending)
		pending = mergeByKey(pending)

		b := block{opts: &opts, called: alleles.NewCalledSet()}
		var carried []alleles.Allele
		for _, allele := range pending {
			if !last && allele.Pos > blk.End {
				carried = append(carried, allele)
			} else {
				b.add(allele)
			}
		}

		var r realloc.Result
		if last {
			r = realloc.Reallocate(b.failed, b.called)
		} else {
			r = realloc.ReallocateBefore(b.failed, b.called, blk.End+1)
		}
		for _, allele := range r.Emitted {
			b.addEmitted(allele)
		}
		for _, allele := range r.Leftovers {
			if allele.IsVariant() {
				carried = append(carried, allele)
			}
		}
		b.dropUntargeted(contig.Name, int32(len(contig.Seq)))
		result = append(result, b.called.Alleles()...)
		pending = carried
	}
	return result, nil
}

// CallContigs calls the given contigs in parallel. The results are in
// the order of the input. If several contigs fail, the error of the
// first one in input order is returned.
func CallContigs(contigs []Contig, opts Options) ([][]alleles.Allele, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(contigs) == 0 {
		return nil, nil
	}
	results := make([][]alleles.Allele, len(contigs))
	errs := make([]error, len(contigs))
	parallel.Range(0, len(contigs), len(contigs), func(low, high int) {
		for i := low; i < high; i++ {
			results[i], errs[i] = CallContig(contigs[i], opts)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
