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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcall/alleles"
)

var testSam = strings.Join([]string{
	"@HD\tVN:1.6\tSO:coordinate",
	"@SQ\tSN:chr1\tLN:10",
	"@SQ\tSN:chr2\tLN:20",
	"@SQ\tSN:chr3\tLN:5",
	"r1\t0\tchr1\t1\t60\t10M\t*\t0\t0\tTTATTTTTTT\tIIIIIIIIII",
	"r2\t16\tchr1\t2\t60\t5M\t*\t0\t0\tTATTT\tIIIII",
	"r3\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII",
	"r4\t256\tchr1\t1\t60\t4M\t*\t0\t0\tTTAT\tIIII",
	"r5\t1024\tchr1\t1\t60\t4M\t*\t0\t0\tTTAT\tIIII",
	"r6\t0\tchr2\t3\t60\t2S3M\t*\t0\t0\tAAACG\t#####\tXD:Z:1",
	"r7\t0\tchr3\t1\t60\t3M\t*\t0\t0\t*\t*",
}, "\n") + "\n"

func writeSam(t *testing.T) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "input.sam")
	require.NoError(t, os.WriteFile(filename, []byte(testSam), 0600))
	return filename
}

func TestReadFile(t *testing.T) {
	reads, err := ReadFile(writeSam(t), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"chr1", "chr2", "chr3"}, reads.Contigs)
	assert.Equal(t, 3, reads.Count())

	chr1 := reads.ByContig["chr1"]
	require.Len(t, chr1, 2)
	assert.Equal(t, "r1", chr1[0].Name)
	assert.Equal(t, alleles.Forward, chr1[0].Direction)
	assert.Equal(t, []byte("TTATTTTTTT"), chr1[0].Seq)
	assert.Equal(t, byte(40), chr1[0].Qual[0])
	assert.Equal(t, "r2", chr1[1].Name)
	assert.Equal(t, int32(2), chr1[1].Pos)
	assert.Equal(t, alleles.Reverse, chr1[1].Direction)

	chr2 := reads.ByContig["chr2"]
	require.Len(t, chr2, 1)
	assert.Equal(t, alleles.Stitched, chr2[0].Direction)
	assert.Equal(t, []Operation{{SoftClip, 2}, {Match, 3}}, chr2[0].Ops)
	assert.Equal(t, byte(2), chr2[0].Qual[0])

	assert.Empty(t, reads.ByContig["chr3"])
}

func TestReadFileIncludeSecondary(t *testing.T) {
	reads, err := ReadFile(writeSam(t), true)
	require.NoError(t, err)
	assert.Len(t, reads.ByContig["chr1"], 3)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile("input.cram", false)
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.sam"), false)
	assert.Error(t, err)
}
