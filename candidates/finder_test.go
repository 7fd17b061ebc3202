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

package candidates

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcall/alignment"
	"github.com/exascience/elcall/alleles"
)

const testRef = "ACGTACGTAC"

func makeRecord(t *testing.T, pos int32, cigar, seq string) *alignment.Record {
	t.Helper()
	ops, err := alignment.ScanCigarString(cigar)
	require.NoError(t, err)
	qual := bytes.Repeat([]byte{30}, len(seq))
	return &alignment.Record{
		Name:      "read",
		Chrom:     "chr1",
		Pos:       pos,
		Ops:       ops,
		Seq:       []byte(seq),
		Qual:      qual,
		Direction: alleles.Forward,
	}
}

func policy(maxMnv, maxInterveningRef int) Policy {
	return Policy{MinBaseQuality: 20, MaxLengthMnv: maxMnv, MaxLengthInterveningRef: maxInterveningRef}
}

func fwd(pos int32, ref, alt string) alleles.Allele {
	return alleles.New("chr1", pos, ref, alt, alleles.Single(alleles.Forward))
}

func find(t *testing.T, rec *alignment.Record, ref string, p Policy) []alleles.Allele {
	t.Helper()
	result, err := Find(rec, []byte(ref), p)
	require.NoError(t, err)
	return result
}

func TestFindSnv(t *testing.T) {
	rec := makeRecord(t, 3, "5M", "GTTCG")
	assert.Equal(t, []alleles.Allele{fwd(5, "A", "T")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindNoVariation(t *testing.T) {
	rec := makeRecord(t, 1, "10M", testRef)
	assert.Empty(t, find(t, rec, testRef, policy(3, 1)))
}

func TestFindMnvWithInterveningReference(t *testing.T) {
	rec := makeRecord(t, 1, "10M", "ACACAAAAAA")
	result := find(t, rec, "AAAAAAAAAA", policy(10, 1))
	assert.Equal(t, []alleles.Allele{fwd(2, "AAA", "CAC")}, result)
	assert.Equal(t, alleles.Mnv, result[0].Category)
}

func TestFindInterveningReferenceExceeded(t *testing.T) {
	rec := makeRecord(t, 1, "10M", "ACAACAAAAA")
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "A", "C"), fwd(5, "A", "C")},
		find(t, rec, "AAAAAAAAAA", policy(10, 1)))

	// with a larger allowance the same read yields a single run
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "AAAA", "CAAC")},
		find(t, rec, "AAAAAAAAAA", policy(10, 2)))
}

func TestFindNoInterveningReference(t *testing.T) {
	rec := makeRecord(t, 1, "6M", "ACCACA")
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "AA", "CC"), fwd(5, "A", "C")},
		find(t, rec, "AAAAAA", policy(10, 0)))
}

func TestFindLowQualityTerminatesRun(t *testing.T) {
	rec := makeRecord(t, 1, "10M", "ACCCAAAAAA")
	rec.Qual[2] = 10
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "A", "C"), fwd(4, "A", "C")},
		find(t, rec, "AAAAAAAAAA", policy(10, 3)))
}

func TestFindLowQualityReferenceBaseTerminatesRun(t *testing.T) {
	rec := makeRecord(t, 1, "6M", "ACACAA")
	rec.Qual[2] = 10
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "A", "C"), fwd(4, "A", "C")},
		find(t, rec, "AAAAAA", policy(10, 3)))
}

func TestFindUnknownBaseTerminatesRun(t *testing.T) {
	rec := makeRecord(t, 1, "10M", "ACNCAAAAAA")
	assert.Equal(t,
		[]alleles.Allele{fwd(2, "A", "C"), fwd(4, "A", "C")},
		find(t, rec, "AAAAAAAAAA", policy(10, 3)))
}

func TestFindRunSplitting(t *testing.T) {
	ref := "AAAAAAAAAA"

	rec := makeRecord(t, 1, "9M", "CCCCCCCCC")
	assert.Equal(t,
		[]alleles.Allele{fwd(1, "AAA", "CCC"), fwd(4, "AAA", "CCC"), fwd(7, "AAA", "CCC")},
		find(t, rec, ref, policy(3, 1)))

	rec = makeRecord(t, 1, "10M", "CCCCCCCCCC")
	result := find(t, rec, ref, policy(3, 1))
	assert.Equal(t,
		[]alleles.Allele{fwd(1, "AAA", "CCC"), fwd(4, "AAA", "CCC"), fwd(7, "AAA", "CCC"), fwd(10, "A", "C")},
		result)
	assert.Equal(t, alleles.Snv, result[3].Category)

	rec = makeRecord(t, 1, "8M", "CCCCCCCC")
	assert.Equal(t,
		[]alleles.Allele{fwd(1, "AAA", "CCC"), fwd(4, "AAA", "CCC"), fwd(7, "AA", "CC")},
		find(t, rec, ref, policy(3, 1)))
}

func TestFindRunSplittingSkipsReferenceChunks(t *testing.T) {
	rec := makeRecord(t, 1, "9M", "CCAACCAAA")
	assert.Equal(t,
		[]alleles.Allele{fwd(1, "AA", "CC"), fwd(5, "AA", "CC")},
		find(t, rec, "AAAAAAAAA", policy(2, 2)))
}

func TestFindRunSplittingKeepsReferenceEdges(t *testing.T) {
	rec := makeRecord(t, 1, "4M", "CACC")
	assert.Equal(t,
		[]alleles.Allele{fwd(1, "AA", "CA"), fwd(3, "AA", "CC")},
		find(t, rec, "AAAA", policy(2, 1)))
}

func TestFindRunEndsAtOperation(t *testing.T) {
	// the insertion closes the first run, and each match operation
	// starts from scratch
	rec := makeRecord(t, 1, "3M1I3M", "AACGCAA")
	result := find(t, rec, "AAAAAA", policy(10, 1))
	assert.Equal(t,
		[]alleles.Allele{fwd(3, "A", "C"), fwd(3, "A", "AG"), fwd(4, "A", "C")},
		result)
}

func TestFindInsertion(t *testing.T) {
	rec := makeRecord(t, 1, "3M2I3M", "ACGTTTAC")
	result := find(t, rec, testRef, policy(3, 1))
	assert.Equal(t, []alleles.Allele{fwd(3, "G", "GTT")}, result)
	assert.Equal(t, alleles.Insertion, result[0].Category)
}

func TestFindInsertionQuality(t *testing.T) {
	rec := makeRecord(t, 1, "3M2I3M", "ACGTTTAC")
	rec.Qual[3] = 5
	assert.Empty(t, find(t, rec, testRef, policy(3, 1)))

	rec = makeRecord(t, 1, "3M2I3M", "ACGTTTAC")
	rec.Qual[4] = 5
	assert.Equal(t, []alleles.Allele{fwd(3, "G", "GTT")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindLeadingInsertion(t *testing.T) {
	rec := makeRecord(t, 3, "2I4M", "GGGTAC")
	assert.Equal(t, []alleles.Allele{fwd(2, "C", "CGG")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindLeadingInsertionAtContigStart(t *testing.T) {
	rec := makeRecord(t, 1, "1I3M", "TACG")
	assert.Equal(t, []alleles.Allele{fwd(0, "N", "NT")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindSoftClipAnchoredInsertion(t *testing.T) {
	rec := makeRecord(t, 5, "2S2I", "AAGG")
	assert.Equal(t, []alleles.Allele{fwd(4, "T", "TGG")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindUnanchoredInsertion(t *testing.T) {
	rec := makeRecord(t, 5, "3I", "GGG")
	_, err := Find(rec, []byte(testRef), policy(3, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnanchoredInsertion))
}

func TestFindDeletion(t *testing.T) {
	rec := makeRecord(t, 1, "3M2D3M", "ACGCGT")
	result := find(t, rec, testRef, policy(3, 1))
	assert.Equal(t, []alleles.Allele{fwd(3, "GTA", "G")}, result)
	assert.Equal(t, alleles.Deletion, result[0].Category)
}

func TestFindDeletionQuality(t *testing.T) {
	rec := makeRecord(t, 1, "3M2D3M", "ACGCGT")
	rec.Qual[2] = 5
	assert.Empty(t, find(t, rec, testRef, policy(3, 1)))

	rec = makeRecord(t, 1, "3M2D3M", "ACGCGT")
	rec.Qual[3] = 5
	assert.Empty(t, find(t, rec, testRef, policy(3, 1)))

	rec = makeRecord(t, 1, "3M2D3M", "ACGCGT")
	rec.Qual[0] = 5
	rec.Qual[5] = 5
	assert.Equal(t, []alleles.Allele{fwd(3, "GTA", "G")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindDeletionAtReadEdges(t *testing.T) {
	rec := makeRecord(t, 3, "2D4M", "ACGT")
	assert.Equal(t, []alleles.Allele{fwd(2, "NGT", "N")}, find(t, rec, testRef, policy(3, 1)))

	rec = makeRecord(t, 1, "4M2D", "ACGT")
	assert.Equal(t, []alleles.Allele{fwd(4, "TAC", "T")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindSoftClips(t *testing.T) {
	rec := makeRecord(t, 3, "2S4M2S", "TTGTACTT")
	assert.Empty(t, find(t, rec, testRef, policy(3, 1)))

	rec = makeRecord(t, 3, "2S4M2S", "TTGAACTT")
	assert.Equal(t, []alleles.Allele{fwd(4, "T", "A")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindDirection(t *testing.T) {
	rec := makeRecord(t, 3, "5M", "GTTCG")
	rec.Direction = alleles.Reverse
	result := find(t, rec, testRef, policy(3, 1))
	require.Len(t, result, 1)
	assert.Equal(t, alleles.Support{0, 1, 0}, result[0].Support)
}

func TestFindBeyondReference(t *testing.T) {
	rec := makeRecord(t, 8, "6M", "TTCCCC")
	assert.Equal(t, []alleles.Allele{fwd(9, "A", "T")}, find(t, rec, testRef, policy(3, 1)))
}

func TestFindOrdered(t *testing.T) {
	rec := makeRecord(t, 1, "1S2M1I3M2D3M", "GACTAGAGTA")
	result := find(t, rec, "AAAAAAAAAAAAAA", policy(3, 1))
	require.NotEmpty(t, result)
	for i := 1; i < len(result); i++ {
		if result[i].Pos < result[i-1].Pos {
			t.Errorf("candidates out of order: %v", result)
		}
	}
}

func TestFindRestartable(t *testing.T) {
	rec := makeRecord(t, 1, "3M2I3M", "ACTTTTAC")
	f, err := NewFinder(policy(3, 1))
	require.NoError(t, err)
	first, err := f.Find(rec, []byte(testRef))
	require.NoError(t, err)
	second, err := f.Find(rec, []byte(testRef))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Error("DefaultPolicy is invalid")
	}
	if err := policy(0, 1).Validate(); err == nil {
		t.Error("MaxLengthMnv 0 accepted")
	}
	if err := policy(3, -1).Validate(); err == nil {
		t.Error("negative MaxLengthInterveningRef accepted")
	}
	if _, err := Find(makeRecord(t, 1, "1M", "A"), []byte(testRef), policy(0, 0)); err == nil {
		t.Error("Find accepted an invalid policy")
	}
}

func TestRunStateMachine(t *testing.T) {
	var r run
	if r.reference(0) {
		t.Error("closed run asked to close")
	}
	r.hit(10, 3)
	if !r.open || r.start != 10 || r.readStart != 3 || r.length() != 1 {
		t.Error("hit did not open run")
	}
	if r.reference(1) {
		t.Error("first intervening base closed run")
	}
	r.hit(12, 5)
	if r.length() != 3 || r.intervening != 0 {
		t.Error("hit did not extend run")
	}
	if r.reference(1) || !r.reference(1) {
		t.Error("intervening limit not enforced")
	}
	if r.length() != 3 {
		t.Error("intervening bases became part of the run")
	}
	r.reset()
	if r.open {
		t.Error("reset failed")
	}
}

func TestChunks(t *testing.T) {
	var got [][2]int
	chunks(7, 3, func(offset, end int) { got = append(got, [2]int{offset, end}) })
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 7}}, got)

	got = nil
	chunks(9, 3, func(offset, end int) { got = append(got, [2]int{offset, end}) })
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 9}}, got)
}

func BenchmarkFind(b *testing.B) {
	ref := bytes.Repeat([]byte("ACGT"), 100)
	seq := append([]byte(nil), ref[:150]...)
	for i := 5; i < len(seq); i += 17 {
		seq[i] = 'N'
		seq[i-2] = 'A'
	}
	ops, _ := alignment.ScanCigarString("150M")
	rec := &alignment.Record{Name: "bench", Chrom: "chr1", Pos: 1, Ops: ops, Seq: seq, Qual: bytes.Repeat([]byte{30}, 150)}
	f, _ := NewFinder(DefaultPolicy())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Find(rec, ref)
	}
}
