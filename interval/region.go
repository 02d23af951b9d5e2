// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PosType is the type used to represent a position parsed from user input.
// int32 is wide enough since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// String renders e as a 1-based region string.
func (e Entry) String() string {
	if e.Start0 == 0 && e.End == PosTypeMax-1 {
		return e.ChrName
	}
	return fmt.Sprintf("%s:%d-%d", e.ChrName, e.Start0+1, e.End)
}

// Clip intersects [start, end) on contig with e.  It returns false if the
// intersection is empty.
func (e Entry) Clip(contig string, start, end int) (int, int, bool) {
	if contig != e.ChrName {
		return 0, 0, false
	}
	if s := int(e.Start0); start < s {
		start = s
	}
	if x := int(e.End); end > x {
		end = x
	}
	return start, end, start < end
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax - 1) is returned if there is no positional restriction.
func ParseRegionString(region string) (Entry, error) {
	var result Entry
	if len(region) == 0 {
		return result, fmt.Errorf("interval.ParseRegionString: empty region string")
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.End = PosTypeMax - 1
		return result, nil
	}
	if colonPos == 0 {
		return result, fmt.Errorf("interval.ParseRegionString: empty contig ID in %q", region)
	}
	result.ChrName = region[:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		pos1, err := parsePos(rangeStr)
		if err != nil {
			return result, err
		}
		result.Start0 = pos1 - 1
		result.End = pos1
		return result, nil
	}
	start1, err := parsePos(rangeStr[:dashPos])
	if err != nil {
		return result, err
	}
	end, err := parsePos(rangeStr[dashPos+1:])
	if err != nil {
		return result, err
	}
	// end == PosTypeMax is rejected so that End stays representable as an
	// exclusive bound.
	if end < start1 || end == PosTypeMax {
		return result, fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
	}
	result.Start0 = start1 - 1
	result.End = end
	return result, nil
}

func parsePos(s string) (PosType, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("interval.ParseRegionString: %v", err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", s)
	}
	return PosType(v), nil
}
