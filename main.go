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

// elCall is a high-performance tool for calling SNVs, MNVs, insertions
// and deletions from aligned .sam/.bam files.
//
// Please see https://github.com/exascience/elcall for a documentation
// of the tool, and below for the API documentation.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elcall/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: call, fasta-to-elfasta, bed-to-elsites")
	fmt.Fprint(os.Stderr, "\n", cmd.CallHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.FastaToElfastaHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.BedToElsitesHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "call":
		err = cmd.Call()
	case "fasta-to-elfasta":
		err = cmd.FastaToElfasta()
	case "bed-to-elsites":
		err = cmd.BedToElsites()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
