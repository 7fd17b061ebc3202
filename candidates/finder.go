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

// Package candidates detects candidate alleles in single aligned reads.
package candidates

import (
	"errors"
	"fmt"
	"log"

	"github.com/exascience/elcall/alignment"
	"github.com/exascience/elcall/alleles"
)

// ErrUnanchoredInsertion is returned for reads that consist of
// insertions only, so that no base can position them on the reference.
var ErrUnanchoredInsertion = errors.New("unanchored insertion")

const unknownBase = 'N'

func isUnknown(base byte) bool {
	return base == 'N' || base == 'n'
}

// A Finder detects candidate alleles under a fixed Policy. A Finder
// has no mutable state and can be shared between goroutines.
type Finder struct {
	policy Policy
}

// NewFinder returns a Finder for the given policy.
func NewFinder(policy Policy) (*Finder, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Finder{policy: policy}, nil
}

// Policy returns the policy of the finder.
func (f *Finder) Policy() Policy {
	return f.policy
}

// Find returns the candidate alleles of a single read, ordered by
// position. ref is the full contig the read is aligned to, in upper
// case: the base at 1-based position p is ref[p-1].
func Find(rec *alignment.Record, ref []byte, policy Policy) ([]alleles.Allele, error) {
	f, err := NewFinder(policy)
	if err != nil {
		return nil, err
	}
	return f.Find(rec, ref)
}

// Find returns the candidate alleles of a single read, see the
// function Find.
func (f *Finder) Find(rec *alignment.Record, ref []byte) ([]alleles.Allele, error) {
	return f.Append(nil, rec, ref)
}

// Append is like Find, but appends the candidates to dst.
func (f *Finder) Append(dst []alleles.Allele, rec *alignment.Record, ref []byte) ([]alleles.Allele, error) {
	w := walker{
		policy:  &f.policy,
		rec:     rec,
		ref:     ref,
		support: alleles.Single(rec.Direction),
		result:  dst,
	}
	readIndex, refPos := 0, rec.Pos
	for opIndex, op := range rec.Ops {
		switch op.Kind {
		case alignment.Match:
			w.match(op, readIndex, refPos)
		case alignment.Insertion:
			if err := w.insertion(opIndex, op, readIndex, refPos); err != nil {
				return dst, err
			}
		case alignment.Deletion:
			w.deletion(opIndex, op, readIndex, refPos)
		case alignment.SoftClip:
		default:
			log.Panicf("unknown alignment operation %v in read %v", op, rec.Name)
		}
		if op.Kind.ConsumesRead() {
			readIndex += int(op.Length)
		}
		if op.Kind.ConsumesReference() {
			refPos += op.Length
		}
	}
	return w.result, nil
}

type walker struct {
	policy  *Policy
	rec     *alignment.Record
	ref     []byte
	support alleles.Support
	result  []alleles.Allele
}

func (w *walker) emit(pos int32, ref, alt string) {
	w.result = append(w.result, alleles.New(w.rec.Chrom, pos, ref, alt, w.support))
}

func (w *walker) onReference(pos int32) bool {
	return pos >= 1 && int(pos) <= len(w.ref)
}

func (w *walker) qualifies(readIndex int) bool {
	return w.rec.Qual[readIndex] >= w.policy.MinBaseQuality
}

func (w *walker) match(op alignment.Operation, readIndex int, refPos int32) {
	var r run
	for k := 0; k < int(op.Length); k++ {
		pos, index := refPos+int32(k), readIndex+k
		if !w.onReference(pos) {
			break
		}
		base := w.rec.Seq[index]
		switch {
		case isUnknown(base) || !w.qualifies(index):
			w.closeRun(&r)
		case base != w.ref[pos-1]:
			r.hit(pos, index)
		case r.reference(w.policy.MaxLengthInterveningRef):
			w.closeRun(&r)
		}
	}
	w.closeRun(&r)
}

// closeRun emits an open run, split into chunks of at most
// MaxLengthMnv positions. Chunks that match the reference
// everywhere are skipped.
func (w *walker) closeRun(r *run) {
	if !r.open {
		return
	}
	length := r.length()
	ref := w.ref[r.start-1 : r.start-1+int32(length)]
	alt := w.rec.Seq[r.readStart : r.readStart+length]
	chunks(length, w.policy.MaxLengthMnv, func(offset, end int) {
		chunkRef, chunkAlt := string(ref[offset:end]), string(alt[offset:end])
		if chunkRef != chunkAlt {
			w.emit(r.start+int32(offset), chunkRef, chunkAlt)
		}
	})
	r.reset()
}

func (w *walker) hasOp(from, to int, test func(alignment.OpKind) bool) bool {
	for _, op := range w.rec.Ops[from:to] {
		if test(op.Kind) {
			return true
		}
	}
	return false
}

func isMatch(kind alignment.OpKind) bool { return kind == alignment.Match }

func isAnchor(kind alignment.OpKind) bool {
	return kind == alignment.Match || kind == alignment.SoftClip
}

// referenceBase returns the reference base at pos, or the unknown
// base placeholder for positions outside of the reference.
func (w *walker) referenceBase(pos int32) byte {
	if w.onReference(pos) {
		return w.ref[pos-1]
	}
	return unknownBase
}

/*
insertion emits an insertion anchored at the reference position just
before refPos. When the read has aligned bases before the insertion,
that position is the preceding reference base. When the insertion
leads the read, the following aligned base (or an adjacent soft-clip
boundary) positions it, and the allele is reported one position
earlier. Its anchor is then the reference base at that earlier
position, not the following read base, or the unknown base when that
position lies before the start of the contig.

Only the quality of the first inserted base is checked.
*/
func (w *walker) insertion(opIndex int, op alignment.Operation, readIndex int, refPos int32) error {
	if !w.hasOp(0, opIndex, alignment.OpKind.ConsumesReference) &&
		!w.hasOp(0, len(w.rec.Ops), isAnchor) {
		return fmt.Errorf("%w in read %v", ErrUnanchoredInsertion, w.rec.Name)
	}
	if op.Length == 0 || !w.qualifies(readIndex) {
		return nil
	}
	anchorPos := refPos - 1
	if anchorPos > int32(len(w.ref)) {
		return nil
	}
	anchor := w.referenceBase(anchorPos)
	inserted := w.rec.Seq[readIndex : readIndex+int(op.Length)]
	alt := make([]byte, 0, len(inserted)+1)
	alt = append(append(alt, anchor), inserted...)
	w.emit(anchorPos, string(anchor), string(alt))
	return nil
}

/*
deletion emits a deletion of the reference bases [refPos,
refPos+op.Length) anchored at refPos-1. Both read bases around the
deletion must pass the quality cutoff where they exist.

Without an aligned base before the deletion, the unknown base is
used as anchor.
*/
func (w *walker) deletion(opIndex int, op alignment.Operation, readIndex int, refPos int32) {
	if readIndex > 0 && !w.qualifies(readIndex-1) {
		return
	}
	if readIndex < len(w.rec.Qual) && !w.qualifies(readIndex) {
		return
	}
	end := refPos + op.Length - 1
	if op.Length == 0 || !w.onReference(refPos) || !w.onReference(end) {
		return
	}
	anchor := byte(unknownBase)
	if w.hasOp(0, opIndex, isMatch) {
		anchor = w.referenceBase(refPos - 1)
	}
	ref := make([]byte, 0, op.Length+1)
	ref = append(append(ref, anchor), w.ref[refPos-1:end]...)
	w.emit(refPos-1, string(ref), string(anchor))
}
