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

// Package bamstats scans BAM files and collects per-reference fragment
// coverage vectors and per-read accuracy statistics.  The accumulators
// (FragStats, AccuracyStats) work on individual sam.Records, so callers that
// already hold records can feed them directly; FragCoverage and ReadStats
// wrap a sequential scan of a BAM file.
package bamstats

import (
	"context"
	"io"

	"github.com/alnstats/alnstats/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Opts holds the record filters shared by the BAM statistics collectors.
type Opts struct {
	// Region restricts collection to records overlapping the region, in
	// <contig>[:<1-based start>[-<end>]] form.  Empty means no restriction.
	Region string
	// MinMapQ excludes mapped records with mapping quality below it.
	MinMapQ int
	// WithClips includes soft and hard clips in the alignment length when
	// computing per-read accuracy.
	WithClips bool
}

// DefaultOpts is the zero filter set: whole file, any mapping quality,
// clips excluded.
var DefaultOpts = Opts{}

func (o *Opts) region() (*interval.Region, error) {
	if o == nil || o.Region == "" {
		return nil, nil
	}
	region, err := interval.ParseRegion(o.Region)
	if err != nil {
		return nil, err
	}
	return &region, nil
}

// keep applies the shared filters to a mapped record.
func keep(rec *sam.Record, minMapQ int, region *interval.Region) bool {
	if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		return false
	}
	if int(rec.MapQ) < minMapQ {
		return false
	}
	if region != nil &&
		!region.Overlaps(rec.Ref.Name(), interval.PosType(rec.Pos), interval.PosType(rec.End())) {
		return false
	}
	return true
}

// auxInt extracts an integer aux value such as the NM tag, which BAM writers
// store with whatever width fits.
func auxInt(aux sam.Aux) (int, bool) {
	switch v := aux.Value().(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	}
	return 0, false
}

// scan reads every record of the BAM file at path and passes it to fn.
func scan(ctx context.Context, path string, fn func(*sam.Record) error) (err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader, err := bam.NewReader(infile.Reader(ctx), 1)
	if err != nil {
		return errors.Wrapf(err, "bamstats: opening %s", path)
	}
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	nRec := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "bamstats: reading %s", path)
		}
		if err = fn(rec); err != nil {
			return err
		}
		nRec++
		sam.PutInFreePool(rec)
	}
	log.Debug.Printf("bamstats: scanned %d records from %s", nRec, path)
	return nil
}
