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

// Package interval implements the two interval flavors used by the alnstats
// commands: reference-length intervals for partitioning a reference set, and
// genomic regions for restricting a BAM scan.
// Positions are assumed to fit in a PosType, currently int32 since that's
// what BAM files are limited to.
package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PosType is the integer type used to represent genomic positions.
type PosType = int32

const posTypeMax = math.MaxInt32

// LengthInterval selects references whose length falls in [Min, Max], with
// Max == 0 meaning no upper bound.
type LengthInterval struct {
	Min int
	Max int
}

// Contains reports whether a reference of the given length falls in the
// interval.
func (iv LengthInterval) Contains(length int) bool {
	if length < iv.Min {
		return false
	}
	return iv.Max == 0 || length <= iv.Max
}

// Filter returns the subset of refLens whose lengths the interval contains.
func (iv LengthInterval) Filter(refLens map[string]int) map[string]int {
	subset := make(map[string]int)
	for name, length := range refLens {
		if iv.Contains(length) {
			subset[name] = length
		}
	}
	return subset
}

func (iv LengthInterval) String() string {
	return fmt.Sprintf("[%d,%d]", iv.Min, iv.Max)
}

// ParseLengthIntervals parses a comma-separated list of min:max pairs, e.g.
// "0:1000,1000:2000,2000:0".  A max of 0 means unbounded.  An empty string
// yields no intervals.
func ParseLengthIntervals(s string) ([]LengthInterval, error) {
	if s == "" {
		return nil, nil
	}
	var intervals []LengthInterval
	for _, part := range strings.Split(s, ",") {
		colonPos := strings.IndexByte(part, ':')
		if colonPos == -1 {
			return nil, fmt.Errorf("interval.ParseLengthIntervals: missing ':' in %q", part)
		}
		min, err := strconv.Atoi(part[:colonPos])
		if err != nil {
			return nil, fmt.Errorf("interval.ParseLengthIntervals: invalid lower bound in %q", part)
		}
		max, err := strconv.Atoi(part[colonPos+1:])
		if err != nil {
			return nil, fmt.Errorf("interval.ParseLengthIntervals: invalid upper bound in %q", part)
		}
		if min < 0 || max < 0 || (max != 0 && max < min) {
			return nil, fmt.Errorf("interval.ParseLengthIntervals: invalid interval %q", part)
		}
		intervals = append(intervals, LengthInterval{Min: min, Max: max})
	}
	return intervals, nil
}

// Region represents a single genomic interval with 0-based coordinates.
type Region struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// Overlaps reports whether the 0-based half-open interval [start, end) on
// chrName intersects the region.
func (r Region) Overlaps(chrName string, start, end PosType) bool {
	return chrName == r.ChrName && start < r.End && end > r.Start0
}

// ParseRegion parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, posTypeMax - 1] is returned if there is no positional restriction.
func ParseRegion(region string) (result Region, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.Start0 = 0
		result.End = posTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	if end0 <= start1 || end0 >= posTypeMax {
		err = fmt.Errorf("interval.ParseRegion: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}
