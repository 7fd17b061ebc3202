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

package cmd

import (
	"flag"
	"log"
	"os"

	"github.com/exascience/elcall/fasta"
	"github.com/exascience/elcall/intervals"
)

// FastaToElfastaHelp is the help string for this command.
const FastaToElfastaHelp = "fasta-to-elfasta parameters:\n" +
	"elcall fasta-to-elfasta fasta-file elfasta-file\n" +
	"[--log-path path]\n"

// FastaToElfasta implements the elcall fasta-to-elfasta command.
// Sequences are stored in upper case with ambiguity codes normalized,
// as the call command expects them.
func FastaToElfasta() error {
	var logPath string

	var flags flag.FlagSet
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	parseFlags(&flags, 4, FastaToElfastaHelp)

	input := getFilename(os.Args[2], FastaToElfastaHelp)
	output := getFilename(os.Args[3], FastaToElfastaHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	seqs, err := fasta.ParseFasta(input, true, true)
	if err != nil {
		return err
	}
	log.Printf("Converting %v contigs.\n", len(seqs))
	return fasta.ToElfasta(seqs, output)
}

// BedToElsitesHelp is the help string for this command.
const BedToElsitesHelp = "bed-to-elsites parameters:\n" +
	"elcall bed-to-elsites bed-file elsites-file\n" +
	"[--log-path path]\n"

// BedToElsites implements the elcall bed-to-elsites command.
func BedToElsites() error {
	var logPath string

	var flags flag.FlagSet
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	parseFlags(&flags, 4, BedToElsitesHelp)

	input := getFilename(os.Args[2], BedToElsitesHelp)
	output := getFilename(os.Args[3], BedToElsitesHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	regions, err := intervals.FromBedFile(input)
	if err != nil {
		return err
	}
	intervals.Normalize(regions)
	return intervals.ToElsitesFile(regions, output)
}
