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

package alignment

import (
	"errors"
	"fmt"

	"github.com/biogo/hts/sam"

	"github.com/exascience/elcall/alleles"
)

// StitchedTag marks reads that were stitched from a read pair.
var StitchedTag = sam.NewTag("XD")

// ErrUnmapped is returned by FromSAMRecord for reads without an alignment.
var ErrUnmapped = errors.New("unmapped read")

// ErrNoSequence is returned by FromSAMRecord for reads stored without
// bases, that is with * as SEQ.
var ErrNoSequence = errors.New("read without sequence")

func operationFromCigarOp(co sam.CigarOp) (Operation, bool, error) {
	var kind OpKind
	switch co.Type() {
	case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
		kind = Match
	case sam.CigarInsertion:
		kind = Insertion
	case sam.CigarDeletion:
		kind = Deletion
	case sam.CigarSoftClipped:
		kind = SoftClip
	case sam.CigarHardClipped, sam.CigarPadded:
		return Operation{}, false, nil
	default:
		return Operation{}, false, fmt.Errorf("unsupported CIGAR operation %v", co)
	}
	return Operation{Kind: kind, Length: int32(co.Len())}, true, nil
}

// FromSAMRecord converts a biogo/hts SAM/BAM record into a Record.
//
// The 0-based record position becomes 1-based, the Reverse flag
// selects the Reverse direction, and the presence of the stitching
// tag selects the Stitched direction. Missing base qualities are
// treated as 0.
func FromSAMRecord(r *sam.Record) (*Record, error) {
	if r.Flags&sam.Unmapped != 0 || r.Ref == nil || r.Pos < 0 {
		return nil, fmt.Errorf("%w %v", ErrUnmapped, r.Name)
	}
	ops := make([]Operation, 0, len(r.Cigar))
	for _, co := range r.Cigar {
		op, ok, err := operationFromCigarOp(co)
		if err != nil {
			return nil, fmt.Errorf("%v, in read %v", err, r.Name)
		}
		if ok {
			ops = append(ops, op)
		}
	}
	if r.Seq.Length == 0 {
		return nil, fmt.Errorf("%w %v", ErrNoSequence, r.Name)
	}
	seq := r.Seq.Expand()
	qual := make([]byte, len(seq))
	if len(r.Qual) == len(seq) {
		for i, q := range r.Qual {
			if q != 0xff {
				qual[i] = q
			}
		}
	}
	direction := alleles.Forward
	switch {
	case r.AuxFields.Get(StitchedTag) != nil:
		direction = alleles.Stitched
	case r.Flags&sam.Reverse != 0:
		direction = alleles.Reverse
	}
	rec := &Record{
		Name:      r.Name,
		Chrom:     r.Ref.Name(),
		Pos:       int32(r.Pos) + 1,
		Ops:       ops,
		Seq:       seq,
		Qual:      qual,
		Direction: direction,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
