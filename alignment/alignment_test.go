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
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcall/alleles"
)

func opsEqual(ops1, ops2 []Operation) bool {
	if len(ops1) != len(ops2) {
		return false
	}
	for i, op := range ops1 {
		if op != ops2[i] {
			return false
		}
	}
	return true
}

func TestScanCigarString(t *testing.T) {
	ops, err := ScanCigarString("*")
	if err != nil || len(ops) != 0 {
		t.Error("empty ScanCigarString failed")
	}
	ops, err = ScanCigarString("3S10M2I5M1D4M")
	if err != nil || !opsEqual(ops, []Operation{{SoftClip, 3}, {Match, 10}, {Insertion, 2}, {Match, 5}, {Deletion, 1}, {Match, 4}}) {
		t.Error("ScanCigarString 1 failed")
	}
	ops, err = ScanCigarString("5H3=1X2=5H")
	if err != nil || !opsEqual(ops, []Operation{{Match, 3}, {Match, 1}, {Match, 2}}) {
		t.Error("ScanCigarString 2 failed")
	}
	if _, err = ScanCigarString("10M100N10M"); err == nil {
		t.Error("ScanCigarString 3 failed")
	}
	if _, err = ScanCigarString("10"); err == nil {
		t.Error("ScanCigarString 4 failed")
	}
	again, err := ScanCigarString("3S10M2I5M1D4M")
	if err != nil || len(again) != 6 {
		t.Error("cached ScanCigarString failed")
	}
}

func TestRecord(t *testing.T) {
	ops, err := ScanCigarString("2S4M1D3M1I2M")
	require.NoError(t, err)
	rec := &Record{
		Name: "r1", Chrom: "chr1", Pos: 100, Ops: ops,
		Seq:  []byte("AAACCCCGGGTT"),
		Qual: make([]byte, 12),
	}
	assert.Equal(t, int32(109), rec.End())
	assert.NoError(t, rec.Validate())

	rec.Seq = rec.Seq[:11]
	rec.Qual = rec.Qual[:11]
	assert.Error(t, rec.Validate())
}

func TestFromSAMRecord(t *testing.T) {
	ref, err := sam.NewReference("chr7", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)
	cigar := []sam.CigarOp{
		sam.NewCigarOp(sam.CigarHardClipped, 3),
		sam.NewCigarOp(sam.CigarSoftClipped, 1),
		sam.NewCigarOp(sam.CigarMatch, 3),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		sam.NewCigarOp(sam.CigarEqual, 2),
	}
	r, err := sam.NewRecord("read", ref, nil, 41, -1, 0, 60, cigar, []byte("ACGTACG"), []byte{30, 30, 30, 30, 30, 30, 30}, nil)
	require.NoError(t, err)
	r.Flags = sam.Reverse

	rec, err := FromSAMRecord(r)
	require.NoError(t, err)
	assert.Equal(t, "chr7", rec.Chrom)
	assert.Equal(t, int32(42), rec.Pos)
	assert.Equal(t, []Operation{{SoftClip, 1}, {Match, 3}, {Insertion, 1}, {Match, 2}}, rec.Ops)
	assert.Equal(t, []byte("ACGTACG"), rec.Seq)
	assert.Len(t, rec.Qual, 7)
	assert.Equal(t, alleles.Reverse, rec.Direction)

	aux, err := sam.NewAux(StitchedTag, "FRS")
	require.NoError(t, err)
	r.AuxFields = append(r.AuxFields, aux)
	rec, err = FromSAMRecord(r)
	require.NoError(t, err)
	assert.Equal(t, alleles.Stitched, rec.Direction)

	noSeq, err := sam.NewRecord("noseq", ref, nil, 41, -1, 0, 60, cigar[:3], nil, nil, nil)
	require.NoError(t, err)
	_, err = FromSAMRecord(noSeq)
	assert.True(t, errors.Is(err, ErrNoSequence))

	r.Flags = sam.Unmapped
	_, err = FromSAMRecord(r)
	assert.True(t, errors.Is(err, ErrUnmapped))
}
