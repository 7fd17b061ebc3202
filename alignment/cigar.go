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
	"fmt"
	"strconv"
	"sync"
)

const dropped OpKind = 0xff

// maps CIGAR letters to operation kinds; H and P do not affect
// candidate detection
var cigarOperationsTable = map[byte]OpKind{
	'M': Match, '=': Match, 'X': Match,
	'I': Insertion,
	'D': Deletion,
	'S': SoftClip,
	'H': dropped, 'P': dropped,
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

func newOperation(cigar string, i int) (op Operation, j int, err error) {
	for j = i; j < len(cigar); j++ {
		if char := cigar[j]; !isDigit(char) {
			length, nerr := strconv.ParseInt(cigar[i:j], 10, 32)
			if nerr != nil {
				return op, j, nerr
			}
			kind, ok := cigarOperationsTable[char]
			if !ok {
				return op, j, fmt.Errorf("unsupported CIGAR operation %c", char)
			}
			return Operation{Kind: kind, Length: int32(length)}, j + 1, nil
		}
	}
	return op, j, fmt.Errorf("missing CIGAR operation after length %v", cigar[i:])
}

var (
	cigarSliceCache      = map[string][]Operation{"*": {}}
	cigarSliceCacheMutex = sync.RWMutex{}
)

func slowScanCigarString(cigar string) (slice []Operation, err error) {
	for i := 0; i < len(cigar); {
		op, j, err := newOperation(cigar, i)
		if err != nil {
			return nil, fmt.Errorf("%v, while scanning CIGAR string %v", err, cigar)
		}
		if op.Kind != dropped {
			slice = append(slice, op)
		}
		i = j
	}
	cigarSliceCacheMutex.Lock()
	if value, found := cigarSliceCache[cigar]; found {
		slice = value
	} else {
		cigarSliceCache[cigar] = slice
	}
	cigarSliceCacheMutex.Unlock()
	return slice, nil
}

// ScanCigarString converts a CIGAR string into a slice of operations.
// The result is shared between calls and must not be modified.
func ScanCigarString(cigar string) ([]Operation, error) {
	cigarSliceCacheMutex.RLock()
	value, found := cigarSliceCache[cigar]
	cigarSliceCacheMutex.RUnlock()
	if found {
		return value, nil
	}
	return slowScanCigarString(cigar)
}
