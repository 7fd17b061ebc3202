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

// Package fasta loads reference sequences, either from FASTA files or
// from memory-mapped .elfasta files.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/exascience/elcall/internal"
	"github.com/exascience/elcall/utils"
)

// Reference gives access to the sequences of the contigs of a
// reference genome. Sequences are indexed from 0: the base at 1-based
// position p of a contig is Seq(contig)[p-1].
type Reference interface {
	Seq(contig string) []byte
	Close() error
}

// Sequences is a fully loaded reference.
type Sequences map[string][]byte

// Seq returns the sequence of the given contig, or nil if it is unknown.
func (s Sequences) Seq(contig string) []byte {
	return s[contig]
}

// Close does nothing.
func (s Sequences) Close() error {
	return nil
}

// Open opens a reference from an .elfasta file, or otherwise parses a
// FASTA file, converting it to upper case and normalizing ambiguity
// codes.
func Open(filename string) (Reference, error) {
	if filepath.Ext(filename) == ".elfasta" {
		mapped, err := OpenElfasta(filename)
		if err != nil {
			return nil, err
		}
		return mapped, nil
	}
	sequences, err := ParseFasta(filename, true, true)
	if err != nil {
		return nil, err
	}
	return sequences, nil
}

var nTable, upperTable, upperAndNTable [256]byte

func init() {
	for i := range nTable {
		b := byte(i)
		nTable[i], upperTable[i], upperAndNTable[i] = b, b, b
		if b >= 'a' && b <= 'z' {
			upperTable[i] = b - 'a' + 'A'
			upperAndNTable[i] = b - 'a' + 'A'
		}
	}
	for _, c := range []byte("RYMKWSBDHVN") {
		for _, b := range []byte{c, c + 'a' - 'A'} {
			nTable[b] = 'N'
			upperAndNTable[b] = 'N'
		}
	}
}

// ToN maps IUPAC ambiguity codes to N, keeping the case of the
// unambiguous bases.
func ToN(base byte) byte {
	return nTable[base]
}

// ToUpperAndN is like ToN, but also converts the unambiguous bases to
// upper case.
func ToUpperAndN(base byte) byte {
	return upperAndNTable[base]
}

func contigFromHeader(line []byte) string {
	name := bytes.TrimLeft(line[1:], " \t")
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

const maxLineLength = 1 << 26

/*
ParseFasta reads a FASTA file, which may be BGZF compressed.

If toUpper is true, bases are converted to upper case. If toN is
true, ambiguity codes are normalized to N. Empty lines are ignored.
*/
func ParseFasta(filename string, toUpper, toN bool) (fasta Sequences, err error) {
	f, err := internal.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.Close(f, &err)
	input, err := utils.HandleBGZF(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	defer internal.Close(input, &err)
	scanner := bufio.NewScanner(input)
	scanner.Buffer(nil, maxLineLength)

	var table *[256]byte
	switch {
	case toUpper && toN:
		table = &upperAndNTable
	case toUpper:
		table = &upperTable
	case toN:
		table = &nTable
	}

	fasta = make(Sequences)
	var contig string
	var seq []byte
	seen := false
	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if seen {
				fasta[contig] = seq
			}
			contig, seq, seen = contigFromHeader(line), nil, true
			if _, dup := fasta[contig]; dup {
				return nil, fmt.Errorf("invalid fasta file %v - duplicate contig %v", filename, contig)
			}
		case !seen:
			return nil, fmt.Errorf("invalid fasta file %v - missing first header", filename)
		default:
			start := len(seq)
			seq = append(seq, line...)
			if table != nil {
				for i := start; i < len(seq); i++ {
					seq[i] = table[seq[i]]
				}
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if !seen {
		return nil, fmt.Errorf("empty fasta file %v", filename)
	}
	fasta[contig] = seq
	return fasta, nil
}
