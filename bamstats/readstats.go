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

var nmTag = sam.Tag{'N', 'M'}

// ReadStat holds the per-read precision statistics of one mapped record.
type ReadStat struct {
	Name string
	Ref  string
	// Accuracy is 1 - errors/length, where errors counts mismatches,
	// insertions and deletions, and length is the alignment length
	// (including clips when Opts.WithClips is set).
	Accuracy float64
	// Identity is the fraction of aligned match columns that are identical
	// to the reference.
	Identity float64
}

// BaseStats counts alignment columns by type across all accepted records.
type BaseStats struct {
	Match     int // aligned columns (identical or not)
	Mismatch  int
	Insertion int
	Deletion  int
	Clipped   int // soft- plus hard-clipped bases
}

// AccuracyStats accumulates per-read and global alignment precision
// statistics.
type AccuracyStats struct {
	Mapped   int
	Unmapped int
	Filtered int
	Bases    BaseStats
	PerRead  []ReadStat

	withClips bool
	minMapQ   int
	region    *interval.Region
}

// NewAccuracyStats returns an empty accumulator.
func NewAccuracyStats(opts *Opts) (*AccuracyStats, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	region, err := opts.region()
	if err != nil {
		return nil, err
	}
	return &AccuracyStats{
		withClips: opts.WithClips,
		minMapQ:   opts.MinMapQ,
		region:    region,
	}, nil
}

// Add accumulates one record.  Mapped records must carry the NM aux tag.
func (st *AccuracyStats) Add(rec *sam.Record) error {
	if rec.Flags&sam.Unmapped != 0 {
		st.Unmapped++
		return nil
	}
	if !keep(rec, st.minMapQ, st.region) {
		st.Filtered++
		return nil
	}
	var match, ins, del, clipped int
	for _, op := range rec.Cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			match += op.Len()
		case sam.CigarInsertion:
			ins += op.Len()
		case sam.CigarDeletion:
			del += op.Len()
		case sam.CigarSoftClipped, sam.CigarHardClipped:
			clipped += op.Len()
		}
	}
	aux := rec.AuxFields.Get(nmTag)
	if aux == nil {
		return errors.Errorf("bamstats.AccuracyStats: record %s has no NM tag", rec.Name)
	}
	nm, ok := auxInt(aux)
	if !ok {
		return errors.Errorf("bamstats.AccuracyStats: record %s has a non-integer NM tag", rec.Name)
	}
	// NM counts mismatches plus inserted and deleted bases.
	mismatch := nm - ins - del
	if mismatch < 0 {
		mismatch = 0
	}
	if mismatch > match {
		return errors.Errorf("bamstats.AccuracyStats: record %s: NM %d inconsistent with CIGAR", rec.Name, nm)
	}

	alnLen := match + ins + del
	errBases := mismatch + ins + del
	if st.withClips {
		alnLen += clipped
		errBases += clipped
	}
	stat := ReadStat{Name: rec.Name, Ref: rec.Ref.Name()}
	if alnLen > 0 {
		stat.Accuracy = 1 - float64(errBases)/float64(alnLen)
	}
	if match > 0 {
		stat.Identity = float64(match-mismatch) / float64(match)
	}
	st.PerRead = append(st.PerRead, stat)
	st.Bases.Match += match
	st.Bases.Mismatch += mismatch
	st.Bases.Insertion += ins
	st.Bases.Deletion += del
	st.Bases.Clipped += clipped
	st.Mapped++
	return nil
}

// Accuracy returns the global accuracy over all accumulated alignment
// columns, with the same clip handling as the per-read statistic.
func (st *AccuracyStats) Accuracy() float64 {
	alnLen := st.Bases.Match + st.Bases.Insertion + st.Bases.Deletion
	errBases := st.Bases.Mismatch + st.Bases.Insertion + st.Bases.Deletion
	if st.withClips {
		alnLen += st.Bases.Clipped
		errBases += st.Bases.Clipped
	}
	if alnLen == 0 {
		return 0
	}
	return 1 - float64(errBases)/float64(alnLen)
}

// Identity returns the global identity over all aligned match columns.
func (st *AccuracyStats) Identity() float64 {
	if st.Bases.Match == 0 {
		return 0
	}
	return float64(st.Bases.Match-st.Bases.Mismatch) / float64(st.Bases.Match)
}

// ReadStats scans the BAM file at bamPath and returns per-read and global
// precision statistics.
func ReadStats(ctx context.Context, bamPath string, opts *Opts) (*AccuracyStats, error) {
	st, err := NewAccuracyStats(opts)
	if err != nil {
		return nil, err
	}
	if err := scan(ctx, bamPath, st.Add); err != nil {
		return nil, err
	}
	return st, nil
}
