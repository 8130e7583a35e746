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

package bamstats

import (
	"github.com/grailbio/hts/sam"
)

// StrandType describes which strand a fragment is aligned to.
type StrandType int

const (
	// StrandNone means undefined strand (read ends on different chromosomes,
	// or appear to be part of an inversion).
	StrandNone StrandType = iota
	// StrandFwd means the fragment aligns to the forward strand.
	StrandFwd
	// StrandRev means the fragment aligns to the reverse strand.
	StrandRev
)

// StrandTypeToASCIITable is the StrandType -> ASCII mapping.
var StrandTypeToASCIITable = [...]byte{'.', '+', '-'}

// GetStrand returns the strand the record's fragment is aligned to.  For
// single-end reads the reverse FLAG bit decides; for read-pairs the combined
// orientation flags do.
func GetStrand(samr *sam.Record) StrandType {
	if samr.Flags&sam.Paired == 0 {
		if samr.Flags&sam.Reverse != 0 {
			return StrandRev
		}
		return StrandFwd
	}
	if samr.Ref != samr.MateRef {
		return StrandNone
	}
	flagStrand := samr.Flags & (sam.Reverse | sam.MateReverse | sam.Read1 | sam.Read2)
	if (flagStrand == (sam.MateReverse | sam.Read1)) || (flagStrand == (sam.Reverse | sam.Read2)) {
		return StrandFwd
	} else if (flagStrand == (sam.Reverse | sam.Read1)) || (flagStrand == (sam.MateReverse | sam.Read2)) {
		return StrandRev
	}
	if samr.Flags&sam.MateUnmapped == sam.MateUnmapped {
		// Support an alternate encoding emitted by some 'collapser' programs.
		flagStrand &= sam.Reverse | sam.MateReverse
		if flagStrand == 0 {
			return StrandFwd
		} else if flagStrand == (sam.Reverse | sam.MateReverse) {
			return StrandRev
		}
	}
	return StrandNone
}
