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

package internal

import (
	"io"
	"os"
	"path/filepath"
)

// FullPathname makes filename absolute relative to the working directory.
func FullPathname(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, filename), err
}

// Open opens filename for reading after making it absolute.
func Open(filename string) (*os.File, error) {
	pathname, err := FullPathname(filename)
	if err != nil {
		return nil, err
	}
	return os.Open(pathname)
}

// Create creates filename, including missing parent directories.
func Create(filename string) (*os.File, error) {
	pathname, err := FullPathname(filename)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		return nil, err
	}
	return os.Create(pathname)
}

// Close closes c and stores its error in *err, unless *err already
// holds an earlier error. Meant to be deferred.
func Close(c io.Closer, err *error) {
	if nerr := c.Close(); *err == nil {
		*err = nerr
	}
}
