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

package intervals

import (
	"bufio"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elcall/internal"
	"github.com/exascience/elcall/utils"
)

// ElsitesHeader is the header line that every .elsites file starts with.
const ElsitesHeader = "# elsites format version 1.0\n"

// ToElsitesFile stores regions in a .elsites file, one
// "chrom<TAB>start<TAB>end" line per interval, contigs in sorted order.
func ToElsitesFile(regions map[string][]Interval, filename string) (err error) {
	output, err := internal.Create(filename)
	if err != nil {
		return err
	}
	defer internal.Close(output, &err)
	out := bufio.NewWriter(output)
	if _, err = out.WriteString(ElsitesHeader); err != nil {
		return err
	}
	chroms := make([]string, 0, len(regions))
	for chrom := range regions {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	var buf []byte
	for _, chrom := range chroms {
		for _, ival := range regions[chrom] {
			buf = append(buf[:0], chrom...)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(ival.Start), 10)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(ival.End), 10)
			buf = append(buf, '\n')
			if _, err = out.Write(buf); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}

func parseSitesLine(line string, zeroBased bool) (chrom string, ival Interval, err error) {
	fields := strings.SplitN(line, "\t", 4)
	if len(fields) < 3 || fields[0] == "" {
		return "", ival, fmt.Errorf("invalid sites line %q", line)
	}
	start, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return "", ival, fmt.Errorf("invalid start in sites line %q: %w", line, err)
	}
	end, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return "", ival, fmt.Errorf("invalid end in sites line %q: %w", line, err)
	}
	if zeroBased {
		start++
	}
	if start < 1 || end < start {
		return "", ival, fmt.Errorf("invalid interval in sites line %q", line)
	}
	return fields[0], Interval{Start: int32(start), End: int32(end)}, nil
}

func skipLine(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

// readSites parses region lines in parallel and merges them in input
// order.
func readSites(input *bufio.Reader, zeroBased bool) (map[string][]Interval, error) {
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(input))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		regions := make(map[string][]Interval)
		for _, line := range data.([]string) {
			if skipLine(line) {
				continue
			}
			chrom, ival, err := parseSitesLine(line, zeroBased)
			if err != nil {
				p.SetErr(err)
				return regions
			}
			regions[chrom] = append(regions[chrom], ival)
		}
		return regions
	})))
	regions := make(map[string][]Interval)
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		for chrom, ivals := range data.(map[string][]Interval) {
			regions[chrom] = append(regions[chrom], ivals...)
		}
		return data
	})))
	p.Run()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// FromElsitesFile loads regions from a .elsites file.
func FromElsitesFile(filename string) (regions map[string][]Interval, err error) {
	in, err := internal.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.Close(in, &err)
	input := bufio.NewReader(in)
	header, err := input.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%v is not a .elsites file: %w", filename, err)
	}
	if header != ElsitesHeader {
		return nil, fmt.Errorf("%v is not a .elsites file - invalid header", filename)
	}
	return readSites(input, false)
}

// FromBedFile loads regions from a BED file, which may be BGZF
// compressed. BED intervals are 0-based and half-open, and are
// converted to closed 1-based intervals. Columns after the third are
// ignored. See https://genome.ucsc.edu/FAQ/FAQformat.html#format1
func FromBedFile(filename string) (regions map[string][]Interval, err error) {
	in, err := internal.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.Close(in, &err)
	input, err := utils.HandleBGZF(bufio.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer internal.Close(input, &err)
	return readSites(bufio.NewReader(input), true)
}

// FromFile loads regions from a .bed, .bed.gz, or .elsites file,
// and normalizes them.
func FromFile(filename string) (regions map[string][]Interval, err error) {
	switch ext := filepath.Ext(filename); {
	case ext == ".elsites":
		regions, err = FromElsitesFile(filename)
	case ext == ".bed" || strings.HasSuffix(filename, ".bed.gz"):
		regions, err = FromBedFile(filename)
	default:
		return nil, fmt.Errorf("unknown target regions file extension %v", ext)
	}
	if err != nil {
		return nil, err
	}
	Normalize(regions)
	return regions, nil
}
