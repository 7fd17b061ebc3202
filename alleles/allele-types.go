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
	"fmt"
	"log"
)

// Category is an enumeration type for the different kinds of alleles.
type Category uint8

// The different allele categories. Reference alleles are only used
// for internal bookkeeping and are never reported as calls.
const (
	Reference Category = iota
	Snv
	Mnv
	Insertion
	Deletion
)

func (c Category) String() string {
	switch c {
	case Reference:
		return "Reference"
	case Snv:
		return "SNV"
	case Mnv:
		return "MNV"
	case Insertion:
		return "Insertion"
	case Deletion:
		return "Deletion"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// CategoryOf derives the category of an allele from its reference and
// alternate bases.
func CategoryOf(ref, alt string) Category {
	switch {
	case ref == alt:
		return Reference
	case len(alt) > len(ref):
		return Insertion
	case len(alt) < len(ref):
		return Deletion
	case len(ref) == 1:
		return Snv
	default:
		return Mnv
	}
}

// IsSubstitution is true for Snv and Mnv, the only categories that
// take part in reallocation.
func (c Category) IsSubstitution() bool {
	switch c {
	case Snv, Mnv:
		return true
	case Reference, Insertion, Deletion:
		return false
	default:
		log.Panicf("unknown allele category %v", c)
		return false
	}
}

// Direction is the orientation of the read an observation comes from.
type Direction uint8

// The different read directions.
const (
	Forward Direction = iota
	Reverse
	Stitched

	// NumDirections is the length of a Support vector.
	NumDirections
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	case Stitched:
		return "stitched"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Support counts observations per read direction.
type Support [NumDirections]int

// Single returns the support of exactly one observation in the given
// direction.
func Single(direction Direction) (s Support) {
	s[direction] = 1
	return
}

// Total is the sum over all directions.
func (s Support) Total() (total int) {
	for _, n := range s {
		total += n
	}
	return
}

// Add adds other to s element-wise.
func (s *Support) Add(other Support) {
	for i, n := range other {
		s[i] += n
	}
}

// Less orders support vectors lexicographically.
func (s Support) Less(other Support) bool {
	for i, n := range s {
		if n != other[i] {
			return n < other[i]
		}
	}
	return false
}

// Allele is a candidate or called variant at a 1-based position on a
// contig. Its span is [Pos, Pos+len(Ref)-1].
type Allele struct {
	Chrom    string
	Pos      int32
	Ref, Alt string
	Category Category
	Support  Support
}

// New returns an allele whose category is derived from ref and alt.
func New(chrom string, pos int32, ref, alt string, support Support) Allele {
	return Allele{
		Chrom:    chrom,
		Pos:      pos,
		Ref:      ref,
		Alt:      alt,
		Category: CategoryOf(ref, alt),
		Support:  support,
	}
}

// End is the last reference position covered by the allele.
func (a *Allele) End() int32 {
	return a.Pos + int32(len(a.Ref)) - 1
}

// IsVariant is false for Reference alleles.
func (a *Allele) IsVariant() bool {
	return a.Category != Reference
}

// Key identifies an allele independently of its support.
type Key struct {
	Chrom    string
	Pos      int32
	Ref, Alt string
}

// Key returns the key of the allele.
func (a *Allele) Key() Key {
	return Key{Chrom: a.Chrom, Pos: a.Pos, Ref: a.Ref, Alt: a.Alt}
}

// Less orders alleles by chromosome, position, reference bases, and
// alternate bases.
func (a *Allele) Less(b *Allele) bool {
	switch {
	case a.Chrom != b.Chrom:
		return a.Chrom < b.Chrom
	case a.Pos != b.Pos:
		return a.Pos < b.Pos
	case a.Ref != b.Ref:
		return a.Ref < b.Ref
	default:
		return a.Alt < b.Alt
	}
}

func (a Allele) String() string {
	return fmt.Sprintf("%v:%d %v>%v (%v, support %v)", a.Chrom, a.Pos, a.Ref, a.Alt, a.Category, a.Support)
}

// Slice returns the sub-allele covering the length bases starting
// at offset into the allele's span, with the same support. Only valid
// for Reference, Snv and Mnv alleles, where Ref and Alt have the same
// length.
func (a *Allele) Slice(offset, length int) Allele {
	return New(a.Chrom, a.Pos+int32(offset), a.Ref[offset:offset+length], a.Alt[offset:offset+length], a.Support)
}
