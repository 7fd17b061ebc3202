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

package caller

import (
	"bufio"
	"io"
	"strconv"

	"github.com/exascience/elcall/alleles"
)

// TableHeader names the columns written by WriteTable.
const TableHeader = "#chrom\tpos\tref\talt\tcategory\tforward\treverse\tstitched\ttotal\n"

// WriteTable writes calls as a tab-separated table, preceded by a line
// identifying the run.
func WriteTable(w io.Writer, runID string, calls ...[]alleles.Allele) error {
	out := bufio.NewWriter(w)
	if _, err := out.WriteString("# run " + runID + "\n" + TableHeader); err != nil {
		return err
	}
	var buf []byte
	for _, contig := range calls {
		for _, allele := range contig {
			buf = append(buf[:0], allele.Chrom...)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(allele.Pos), 10)
			buf = append(buf, '\t')
			buf = append(buf, allele.Ref...)
			buf = append(buf, '\t')
			buf = append(buf, allele.Alt...)
			buf = append(buf, '\t')
			buf = append(buf, allele.Category.String()...)
			for _, n := range allele.Support {
				buf = append(buf, '\t')
				buf = strconv.AppendInt(buf, int64(n), 10)
			}
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(allele.Support.Total()), 10)
			buf = append(buf, '\n')
			if _, err := out.Write(buf); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}
