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
package main

/*
frag-coverage produces aggregated and per-reference plots of fragment
coverage from a BAM file, along with cov80 coverage-completeness scores.
*/

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alnstats/alnstats/bamstats"
	"github.com/alnstats/alnstats/coverage"
	"github.com/alnstats/alnstats/encoding/fasta"
	"github.com/alnstats/alnstats/interval"
	"github.com/alnstats/alnstats/report"
	"github.com/alnstats/alnstats/results"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"gonum.org/v1/gonum/floats"
)

var (
	fastaPath    = flag.String("fasta", "", "Reference FASTA path (required)")
	region       = flag.String("region", "", "Restrict statistics to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	intervalsStr = flag.String("intervals", "", "Reference-length intervals to report separately, as comma-separated min:max pairs; max 0 means unbounded")
	bins         = flag.Int("bins", 0, "Number of profile bins; 0 means the rounded mean reference length")
	perReference = flag.Bool("per-reference", false, "Also report per-reference coverage profiles")
	noLog        = flag.Bool("no-log", false, "Do not log-transform coverage profiles for plotting")
	tag          = flag.String("tag", "", "Dataset tag; defaults to the BAM basename")
	mapq         = flag.Int("mapq", 0, "Reads with MAPQ below this level are skipped")
	cov80Path    = flag.String("cov80", "", "Output TSV path for per-reference cov80 scores; requires -per-reference")
	globalPath   = flag.String("global-cov80", "", "Output TSV path for the global cov80 score")
	reportPath   = flag.String("report", "frag_coverage.pdf", "Output report PDF path")
	jsonPath     = flag.String("json", "", "Output JSON path for the raw computed results")
	parallelism  = flag.Int("parallelism", 8, "Maximum number of simultaneous per-reference aggregation jobs")
)

func fragCoverageUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

// refResult pairs a reference with its aggregation profile for the JSON
// dump and the cov80 table.
type refResult struct {
	Reference string                     `json:"reference"`
	Profile   *coverage.AggregateProfile `json:"profile"`
}

// aggregateAndPlot runs one aggregation over refs and appends its profile
// and histogram pages to rep.  A no-data profile appends no pages.
func aggregateAndPlot(rep *report.Report, prof *coverage.AggregateProfile, title, histTitle string) error {
	if prof.NoData() {
		log.Printf("%s: no coverage data, skipping", title)
		return nil
	}
	ylab := "Fragment coverage"
	if !*noLog {
		ylab = "log(" + ylab + "+1)"
	}
	if err := rep.Line(title, "Scaled position", ylab,
		report.Series{Name: "+", X: prof.X, Y: prof.PlotFwd},
		report.Series{Name: "-", X: prof.X, Y: prof.PlotRev}); err != nil {
		return err
	}
	return rep.Histogram(fmt.Sprintf("%s cov80=%.4f", histTitle, prof.Cov80),
		"Reference coverage", "Count", prof.RefCov, 100)
}

func aggregate(st *bamstats.FragStats, refs map[string]int, nBins int) (*coverage.AggregateProfile, error) {
	return coverage.Aggregate(refs, st.RefCov, st.FragsFwd, st.FragsRev, coverage.AggregateOpts{
		Bins:          nBins,
		LogScale:      !*noLog,
		ScalePosition: true,
	})
}

// refCoverage returns a reference's total coverage on both strands, for
// sorting the per-reference report pages.
func refCoverage(st *bamstats.FragStats, name string) float64 {
	return floats.Sum(st.FragsFwd[name]) + floats.Sum(st.FragsRev[name])
}

func main() {
	flag.Usage = fragCoverageUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Exactly one positional argument (bampath) expected; please check flag syntax")
	}
	bamPath := flag.Arg(0)
	if *fastaPath == "" {
		log.Fatalf("-fasta is required")
	}
	if *cov80Path != "" && !*perReference {
		log.Fatalf("-cov80 requires -per-reference")
	}
	datasetTag := *tag
	if datasetTag == "" {
		datasetTag = filepath.Base(bamPath)
	}

	ctx := vcontext.Background()
	fa, err := fasta.FromPath(*fastaPath)
	if err != nil {
		log.Fatalf("loading %s: %v", *fastaPath, err)
	}
	refLens := fa.Lengths()

	lengthIntervals, err := interval.ParseLengthIntervals(*intervalsStr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	st, err := bamstats.FragCoverage(ctx, bamPath, refLens, &bamstats.Opts{
		Region:  *region,
		MinMapQ: *mapq,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("frag-coverage: %d mapped, %d unmapped, %d filtered records",
		st.Mapped, st.Unmapped, st.Filtered)

	rep := report.New(*reportPath)

	global, err := aggregate(st, refLens, *bins)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err = aggregateAndPlot(rep, global,
		fmt.Sprintf("Global fragment coverage for %s", datasetTag),
		fmt.Sprintf("Global reference coverage for %s", datasetTag)); err != nil {
		log.Fatalf("%v", err)
	}

	for _, iv := range lengthIntervals {
		subset := iv.Filter(refLens)
		if len(subset) == 0 {
			log.Printf("no references in length interval %v, skipping", iv)
			continue
		}
		prof, err := aggregate(st, subset, *bins)
		if err != nil {
			log.Fatalf("interval %v: %v", iv, err)
		}
		if err = aggregateAndPlot(rep, prof,
			fmt.Sprintf("Coverage in interval %v for %s", iv, datasetTag),
			fmt.Sprintf("Reference coverage in interval %v for %s", iv, datasetTag)); err != nil {
			log.Fatalf("%v", err)
		}
	}

	var perRef []refResult
	if *perReference {
		// Report references in decreasing order of total coverage.
		names := make([]string, 0, len(refLens))
		for name := range refLens {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			ci, cj := refCoverage(st, names[i]), refCoverage(st, names[j])
			if ci != cj {
				return ci > cj
			}
			return names[i] < names[j]
		})

		log.Printf("aggregating per-reference coverage for %d references", len(names))
		profiles := make([]*coverage.AggregateProfile, len(names))
		err = traverse.Limit(*parallelism).Each(len(names), func(i int) error {
			name := names[i]
			prof, err := aggregate(st, map[string]int{name: refLens[name]}, 0)
			if err != nil {
				return err
			}
			profiles[i] = prof
			return nil
		})
		if err != nil {
			log.Fatalf("%v", err)
		}
		for i, name := range names {
			if err = aggregateAndPlot(rep, profiles[i],
				fmt.Sprintf("Fragment coverage for %s:%s", datasetTag, name),
				fmt.Sprintf("Reference coverage for %s:%s", datasetTag, name)); err != nil {
				log.Fatalf("%v", err)
			}
			perRef = append(perRef, refResult{Reference: name, Profile: profiles[i]})
		}
	}

	if err = rep.Close(); err != nil {
		log.Fatalf("writing %s: %v", *reportPath, err)
	}

	if *jsonPath != "" {
		res := struct {
			Tag    string                     `json:"tag"`
			Global *coverage.AggregateProfile `json:"global"`
			PerRef []refResult                `json:"per_reference,omitempty"`
		}{datasetTag, global, perRef}
		if err = results.DumpJSON(ctx, *jsonPath, res); err != nil {
			log.Fatalf("writing %s: %v", *jsonPath, err)
		}
	}
	if *cov80Path != "" {
		rows := make([]results.Cov80Row, 0, len(perRef))
		for _, r := range perRef {
			row := results.Cov80Row{Reference: r.Reference}
			if !r.Profile.NoData() {
				row.Cov80 = r.Profile.Cov80
			}
			rows = append(rows, row)
		}
		if err = results.WriteCov80TSV(ctx, *cov80Path, rows); err != nil {
			log.Fatalf("writing %s: %v", *cov80Path, err)
		}
	}
	if *globalPath != "" {
		globalCov80 := 0.0
		if !global.NoData() {
			globalCov80 = global.Cov80
		}
		if err = results.WriteGlobalCov80TSV(ctx, *globalPath, globalCov80); err != nil {
			log.Fatalf("writing %s: %v", *globalPath, err)
		}
	}
	log.Debug.Printf("exiting")
}
