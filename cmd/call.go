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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/google/uuid"

	"github.com/exascience/elcall/alignment"
	"github.com/exascience/elcall/alleles"
	"github.com/exascience/elcall/caller"
	"github.com/exascience/elcall/config"
	"github.com/exascience/elcall/fasta"
	"github.com/exascience/elcall/internal"
	"github.com/exascience/elcall/intervals"
)

// CallHelp is the help string for this command.
const CallHelp = "call parameters:\n" +
	"elcall call sam-or-bam-file output-file\n" +
	"--reference fasta-or-elfasta-file\n" +
	"[--config yaml-file]\n" +
	"[--target-regions bed-or-elsites-file]\n" +
	"[--min-base-quality nr]\n" +
	"[--max-length-mnv nr]\n" +
	"[--max-length-intervening-ref nr]\n" +
	"[--min-support nr]\n" +
	"[--block-size nr]\n" +
	"[--include-secondary]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

var errMissingReference = errors.New("missing --reference parameter")

// overrides records the command line flags that take precedence over
// the configuration file and the environment.
type overrides struct {
	minBaseQuality, maxLengthMnv, maxLengthInterveningRef, minSupport, blockSize int
	includeSecondary                                                             bool
}

func (o *overrides) define(flags *flag.FlagSet) {
	flags.IntVar(&o.minBaseQuality, "min-base-quality", 0, "minimum base quality for a base to take part in a call")
	flags.IntVar(&o.maxLengthMnv, "max-length-mnv", 0, "maximum length of a single MNV")
	flags.IntVar(&o.maxLengthInterveningRef, "max-length-intervening-ref", 0, "maximum number of reference bases inside an MNV run")
	flags.IntVar(&o.minSupport, "min-support", 0, "minimum number of supporting reads for a call")
	flags.IntVar(&o.blockSize, "block-size", 0, "number of positions per processing block")
	flags.BoolVar(&o.includeSecondary, "include-secondary", false, "also use secondary alignments")
}

// apply copies the flags that were actually given into cfg.
func (o *overrides) apply(flags *flag.FlagSet, cfg *config.Config) {
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-base-quality":
			cfg.MinBaseQuality = o.minBaseQuality
		case "max-length-mnv":
			cfg.MaxLengthMnv = o.maxLengthMnv
		case "max-length-intervening-ref":
			cfg.MaxLengthInterveningRef = o.maxLengthInterveningRef
		case "min-support":
			cfg.MinSupport = o.minSupport
		case "block-size":
			cfg.BlockSize = o.blockSize
		case "include-secondary":
			cfg.IncludeSecondary = o.includeSecondary
		}
	})
}

func buildContigs(reads *alignment.Reads, ref fasta.Reference) ([]caller.Contig, error) {
	contigs := make([]caller.Contig, 0, len(reads.Contigs))
	for _, name := range reads.Contigs {
		recs := reads.ByContig[name]
		seq := ref.Seq(name)
		if seq == nil {
			if len(recs) > 0 {
				return nil, fmt.Errorf("contig %v has %v reads but is missing from the reference", name, len(recs))
			}
			continue
		}
		contigs = append(contigs, caller.Contig{Name: name, Seq: seq, Reads: recs})
	}
	return contigs, nil
}

// Call implements the elcall call command.
func Call() error {
	var (
		reference, configFile, targetRegions string
		nrOfThreads                          int
		timed                                bool
		profile, logPath                     string
		flagValues                           overrides
	)

	var flags flag.FlagSet
	flags.StringVar(&reference, "reference", "", "reference sequence as .fasta or .elfasta file")
	flags.StringVar(&configFile, "config", "", "YAML configuration file")
	flags.StringVar(&targetRegions, "target-regions", "", "only report calls overlapping the regions in a .bed or .elsites file")
	flagValues.define(&flags)
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	parseFlags(&flags, 4, CallHelp)

	input := getFilename(os.Args[2], CallHelp)
	output := getFilename(os.Args[3], CallHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}
	runID := uuid.New().String()
	log.Println("Run", runID)

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	flagValues.apply(&flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if reference == "" {
		return errMissingReference
	}
	sanityChecksFailed := !checkExist("", input) ||
		!checkCreate("", output) ||
		!checkExist("--reference", reference) ||
		(targetRegions != "" && !checkExist("--target-regions", targetRegions))
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CallHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	log.Printf("Parameters: %+v\n", cfg)

	opts := caller.Options{
		Policy:     cfg.Policy(),
		MinSupport: cfg.MinSupport,
		BlockSize:  cfg.BlockSize,
	}

	var ref fasta.Reference
	var reads *alignment.Reads
	var calls [][]alleles.Allele
	phase := int64(1)

	err = timedRun(timed, profile, "Loading reference and reads.", phase, func() (err error) {
		if ref, err = fasta.Open(reference); err != nil {
			return err
		}
		if targetRegions != "" {
			if opts.Targets, err = intervals.FromFile(targetRegions); err != nil {
				return err
			}
		}
		if reads, err = alignment.ReadFile(input, cfg.IncludeSecondary); err != nil {
			return err
		}
		log.Printf("Read %v alignments on %v contigs.\n", reads.Count(), len(reads.Contigs))
		return nil
	})
	if ref != nil {
		defer func() {
			if nerr := ref.Close(); nerr != nil {
				log.Println("Warning: could not close reference:", nerr)
			}
		}()
	}
	if err != nil {
		return err
	}

	phase++
	err = timedRun(timed, profile, "Calling variants.", phase, func() error {
		contigs, err := buildContigs(reads, ref)
		if err != nil {
			return err
		}
		calls, err = caller.CallContigs(contigs, opts)
		return err
	})
	if err != nil {
		return err
	}

	phase++
	return timedRun(timed, profile, "Write to file.", phase, func() (err error) {
		f, err := internal.Create(output)
		if err != nil {
			return err
		}
		defer internal.Close(f, &err)
		n := 0
		for _, contig := range calls {
			n += len(contig)
		}
		log.Printf("Writing %v calls to %v.\n", n, output)
		return caller.WriteTable(f, runID, calls...)
	})
}
