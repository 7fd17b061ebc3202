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

package utils

import (
	"bufio"
	"io"

	"github.com/biogo/hts/bgzf"
)

// IsGzip checks whether the buffered input starts with the gzip magic
// number, without consuming it.
func IsGzip(buf *bufio.Reader) (bool, error) {
	magic, err := buf.Peek(2)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return magic[0] == 0x1f && magic[1] == 0x8b, nil
}

// HandleBGZF returns a BGZF decompressing reader if buf holds gzip
// data, and buf itself otherwise.
func HandleBGZF(buf *bufio.Reader) (io.ReadCloser, error) {
	ok, err := IsGzip(buf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return io.NopCloser(buf), nil
	}
	r, err := bgzf.NewReader(buf, 0)
	if err != nil {
		return nil, err
	}
	return r, nil
}
