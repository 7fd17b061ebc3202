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
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/exascience/elcall/internal"
)

// Reads holds the usable reads of an input file, grouped by contig.
type Reads struct {
	// Contigs lists the contig names in header order.
	Contigs  []string
	ByContig map[string][]*Record
}

// Count returns the total number of reads.
func (reads *Reads) Count() (n int) {
	for _, recs := range reads.ByContig {
		n += len(recs)
	}
	return n
}

type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// skip tells which records do not take part in calling.
func skip(r *sam.Record, includeSecondary bool) bool {
	if r.Flags&(sam.Unmapped|sam.Duplicate|sam.QCFail) != 0 {
		return true
	}
	return !includeSecondary && r.Flags&sam.Secondary != 0
}

// ReadFile loads the reads of a .sam or .bam file. Unmapped reads,
// duplicates, reads failing vendor quality checks and reads without a
// stored sequence are skipped, as are secondary alignments unless
// includeSecondary is true.
func ReadFile(filename string, includeSecondary bool) (reads *Reads, err error) {
	f, err := internal.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.Close(f, &err)

	var input recordReader
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".bam":
		var r *bam.Reader
		if r, err = bam.NewReader(f, 0); err != nil {
			return nil, err
		}
		defer internal.Close(r, &err)
		input = r
	case ".sam":
		var r *sam.Reader
		if r, err = sam.NewReader(bufio.NewReader(f)); err != nil {
			return nil, err
		}
		input = r
	default:
		return nil, fmt.Errorf("unknown alignment file extension %v", ext)
	}
	return readAll(input, includeSecondary)
}

func readAll(input recordReader, includeSecondary bool) (*Reads, error) {
	reads := &Reads{ByContig: make(map[string][]*Record)}
	for _, ref := range input.Header().Refs() {
		reads.Contigs = append(reads.Contigs, ref.Name())
	}
	for {
		r, err := input.Read()
		if errors.Is(err, io.EOF) {
			return reads, nil
		}
		if err != nil {
			return nil, err
		}
		if skip(r, includeSecondary) {
			continue
		}
		rec, err := FromSAMRecord(r)
		if errors.Is(err, ErrUnmapped) {
			continue
		}
		if errors.Is(err, ErrNoSequence) {
			log.Printf("skipping %v", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		reads.ByContig[rec.Chrom] = append(reads.ByContig[rec.Chrom], rec)
	}
}
