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
	"context"

	"github.com/alnstats/alnstats/interval"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// FragStats accumulates per-reference, per-strand fragment coverage.  A
// fragment is the reference span [Pos, End) of one mapped record; every base
// of the span contributes 1 to the strand's coverage vector and to the raw
// reference coverage vector.
type FragStats struct {
	// FragsFwd and FragsRev map reference name to per-base coverage on that
	// strand.  A reference no fragment mapped to on a strand has no entry.
	FragsFwd map[string][]float64
	FragsRev map[string][]float64
	// RefCov maps every reference in the set to its per-base total coverage,
	// zero-filled for uncovered references.
	RefCov map[string][]float64
	// Mapped and Filtered count the records that did and did not pass the
	// filters; Unmapped counts unmapped records.
	Mapped   int
	Unmapped int
	Filtered int

	refLens map[string]int
	minMapQ int
	region  *interval.Region
}

// NewFragStats returns an empty accumulator over the given reference set
// (name to length).  RefCov is pre-filled with zero vectors so that every
// reference contributes coverage samples even when nothing maps to it.
func NewFragStats(refLens map[string]int, opts *Opts) (*FragStats, error) {
	if len(refLens) == 0 {
		return nil, errors.New("bamstats.NewFragStats: empty reference set")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	region, err := opts.region()
	if err != nil {
		return nil, err
	}
	st := &FragStats{
		FragsFwd: make(map[string][]float64),
		FragsRev: make(map[string][]float64),
		RefCov:   make(map[string][]float64, len(refLens)),
		refLens:  refLens,
		minMapQ:  opts.MinMapQ,
		region:   region,
	}
	for name, length := range refLens {
		if length <= 0 {
			return nil, errors.Errorf("bamstats.NewFragStats: non-positive length %d for reference %s", length, name)
		}
		st.RefCov[name] = make([]float64, length)
	}
	return st, nil
}

// Add accumulates one record.  Records on references outside the reference
// set are an error, since that indicates a BAM/FASTA mismatch.
func (st *FragStats) Add(rec *sam.Record) error {
	if rec.Flags&sam.Unmapped != 0 {
		st.Unmapped++
		return nil
	}
	if !keep(rec, st.minMapQ, st.region) {
		st.Filtered++
		return nil
	}
	refName := rec.Ref.Name()
	refLen, ok := st.refLens[refName]
	if !ok {
		return errors.Errorf("bamstats.FragStats: reference %s not in reference set", refName)
	}
	if rec.Ref.Len() != refLen {
		return errors.Errorf("bamstats.FragStats: inconsistent lengths for reference %s (%d in BAM header, %d in reference set)",
			refName, rec.Ref.Len(), refLen)
	}
	start, end := rec.Pos, rec.End()
	if start < 0 || end > refLen {
		return errors.Errorf("bamstats.FragStats: fragment [%d,%d) outside reference %s of length %d",
			start, end, refName, refLen)
	}

	strandCov := st.FragsFwd
	if GetStrand(rec) == StrandRev {
		strandCov = st.FragsRev
	}
	cov, ok := strandCov[refName]
	if !ok {
		cov = make([]float64, refLen)
		strandCov[refName] = cov
	}
	refCov := st.RefCov[refName]
	for i := start; i < end; i++ {
		cov[i]++
		refCov[i]++
	}
	st.Mapped++
	return nil
}

// FragCoverage scans the BAM file at bamPath and returns the fragment
// coverage statistics over the given reference set.
func FragCoverage(ctx context.Context, bamPath string, refLens map[string]int, opts *Opts) (*FragStats, error) {
	st, err := NewFragStats(refLens, opts)
	if err != nil {
		return nil, err
	}
	if err := scan(ctx, bamPath, st.Add); err != nil {
		return nil, err
	}
	return st, nil
}
