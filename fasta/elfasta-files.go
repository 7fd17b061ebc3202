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

package fasta

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/exascience/elcall/internal"
)

/*
An .elfasta file stores a reference so that it can be memory-mapped
and used without parsing. Its layout is:

	magic bytes
	for each contig: name '\t' varint(offset) varint(length)
	'\n'
	the concatenated sequences

Both varints are padded to binary.MaxVarintLen64 bytes each. Offsets
are relative to the start of the file.
*/

// ElfastaMagic is the magic byte sequence that every .elfasta file starts with.
var ElfastaMagic = []byte{0x31, 0xFA, 0x57, 0xA1} // 31FA57A1 => ELFASTA1

const entrySize = 2 * binary.MaxVarintLen64

// ToElfasta stores a reference in an .elfasta file. Contigs are
// stored in sorted order.
func ToElfasta(fasta Sequences, filename string) (err error) {
	contigs := make([]string, 0, len(fasta))
	offset := len(ElfastaMagic) + 1
	for contig := range fasta {
		contigs = append(contigs, contig)
		offset += len(contig) + 1 + entrySize
	}
	sort.Strings(contigs)

	file, err := internal.Create(filename)
	if err != nil {
		return err
	}
	defer internal.Close(file, &err)
	out := bufio.NewWriter(file)
	if _, err = out.Write(ElfastaMagic); err != nil {
		return err
	}
	var entry [entrySize]byte
	for _, contig := range contigs {
		for i := range entry {
			entry[i] = 0
		}
		binary.PutVarint(entry[:binary.MaxVarintLen64], int64(offset))
		binary.PutVarint(entry[binary.MaxVarintLen64:], int64(len(fasta[contig])))
		offset += len(fasta[contig])
		if _, err = out.WriteString(contig); err != nil {
			return err
		}
		if err = out.WriteByte('\t'); err != nil {
			return err
		}
		if _, err = out.Write(entry[:]); err != nil {
			return err
		}
	}
	if err = out.WriteByte('\n'); err != nil {
		return err
	}
	for _, contig := range contigs {
		if _, err = out.Write(fasta[contig]); err != nil {
			return err
		}
	}
	return out.Flush()
}

// MappedFasta is a memory-mapped .elfasta file. The sequences it
// returns are read-only and valid until Close.
type MappedFasta struct {
	fasta Sequences
	data  []byte
}

func parseElfasta(data []byte, filename string) (Sequences, error) {
	if len(data) < len(ElfastaMagic) || string(data[:len(ElfastaMagic)]) != string(ElfastaMagic) {
		return nil, fmt.Errorf("%v is not a .elfasta file - invalid magic byte sequence", filename)
	}
	fasta := make(Sequences)
	index := len(ElfastaMagic)
	for index < len(data) && data[index] != '\n' {
		start := index
		for index < len(data) && data[index] != '\t' {
			index++
		}
		if index+1+entrySize > len(data) {
			return nil, fmt.Errorf("truncated contig table in elfasta file %v", filename)
		}
		contig := string(data[start:index])
		index++
		offset, n := binary.Varint(data[index : index+binary.MaxVarintLen64])
		if n <= 0 {
			return nil, fmt.Errorf("bad number of bytes while parsing offset in elfasta file %v", filename)
		}
		size, n := binary.Varint(data[index+binary.MaxVarintLen64 : index+entrySize])
		if n <= 0 {
			return nil, fmt.Errorf("bad number of bytes while parsing size in elfasta file %v", filename)
		}
		if offset < 0 || size < 0 || offset+size > int64(len(data)) {
			return nil, fmt.Errorf("contig %v out of bounds in elfasta file %v", contig, filename)
		}
		fasta[contig] = data[offset : offset+size : offset+size]
		index += entrySize
	}
	if index >= len(data) {
		return nil, fmt.Errorf("missing end of contig table in elfasta file %v", filename)
	}
	return fasta, nil
}

// OpenElfasta memory-maps an .elfasta file.
func OpenElfasta(filename string) (result *MappedFasta, err error) {
	file, err := internal.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.Close(file, &err)
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%v is not a .elfasta file - empty file", filename)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	fasta, err := parseElfasta(data, filename)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	return &MappedFasta{fasta: fasta, data: data}, nil
}

// Seq returns the sequence of the given contig, or nil if it is unknown.
func (fasta *MappedFasta) Seq(contig string) []byte {
	return fasta.fasta[contig]
}

// Close unmaps the file.
func (fasta *MappedFasta) Close() error {
	if fasta.data == nil {
		return nil
	}
	err := unix.Munmap(fasta.data)
	fasta.data, fasta.fasta = nil, nil
	return err
}
