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
	"fmt"

	"github.com/exascience/elcall/alleles"
)

// OpKind is an enumeration type for the alignment operations that
// candidate detection distinguishes.
type OpKind uint8

// The different alignment operations.
const (
	Match OpKind = iota
	Insertion
	Deletion
	SoftClip
)

func (k OpKind) String() string {
	switch k {
	case Match:
		return "M"
	case Insertion:
		return "I"
	case Deletion:
		return "D"
	case SoftClip:
		return "S"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// ConsumesRead is true for operations that advance the read cursor.
func (k OpKind) ConsumesRead() bool {
	switch k {
	case Match, Insertion, SoftClip:
		return true
	default:
		return false
	}
}

// ConsumesReference is true for operations that advance the
// reference cursor.
func (k OpKind) ConsumesReference() bool {
	switch k {
	case Match, Deletion:
		return true
	default:
		return false
	}
}

// Operation is one alignment operation.
type Operation struct {
	Kind   OpKind
	Length int32
}

func (op Operation) String() string {
	return fmt.Sprintf("%d%v", op.Length, op.Kind)
}

/*
Record is an immutable view of one read aligned to a reference contig.

Pos is the 1-based reference position of the first reference-consuming
operation. Seq and Qual are indexed from 0 and have the same length;
Qual holds Phred scores (not offset by 33).
*/
type Record struct {
	Name      string
	Chrom     string
	Pos       int32
	Ops       []Operation
	Seq       []byte
	Qual      []byte
	Direction alleles.Direction
}

// End returns the last reference position covered by the record.
func (rec *Record) End() int32 {
	end := rec.Pos - 1
	for _, op := range rec.Ops {
		if op.Kind.ConsumesReference() {
			end += op.Length
		}
	}
	return end
}

// ReadLength sums the lengths of all operations that consume read bases.
func ReadLength(ops []Operation) (length int32) {
	for _, op := range ops {
		if op.Kind.ConsumesRead() {
			length += op.Length
		}
	}
	return length
}

// Validate checks that the operations and the sequence of the record
// agree with each other.
func (rec *Record) Validate() error {
	if len(rec.Seq) != len(rec.Qual) {
		return fmt.Errorf("read %v has %d bases but %d qualities", rec.Name, len(rec.Seq), len(rec.Qual))
	}
	if length := ReadLength(rec.Ops); int(length) != len(rec.Seq) {
		return fmt.Errorf("read %v has %d bases but its operations consume %d", rec.Name, len(rec.Seq), length)
	}
	if rec.Pos < 1 {
		return fmt.Errorf("read %v has invalid position %d", rec.Name, rec.Pos)
	}
	return nil
}
