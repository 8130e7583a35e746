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
bam-accuracy produces alignment precision statistics (per-read and global
accuracy and identity) of the input BAM file.
*/

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnstats/alnstats/bamstats"
	"github.com/alnstats/alnstats/report"
	"github.com/alnstats/alnstats/results"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	region     = flag.String("region", "", "Restrict statistics to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	globalPath = flag.String("global", "", "Output TSV path for global statistics")
	readsPath  = flag.String("reads", "", "Output TSV path for per-read statistics")
	tag        = flag.String("tag", "", "Dataset tag; defaults to the BAM basename")
	mapq       = flag.Int("mapq", 0, "Reads with MAPQ below this level are skipped")
	withClips  = flag.Bool("with-clips", false, "Include soft and hard clips in alignment length when calculating accuracy")
	reportPath = flag.String("report", "bam_accuracy.pdf", "Output report PDF path")
	jsonPath   = flag.String("json", "", "Output JSON path for the raw computed results")
)

func bamAccuracyUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func plotPages(rep *report.Report, st *bamstats.AccuracyStats, datasetTag string) error {
	if err := rep.Bars(fmt.Sprintf("Basewise statistics for %s", datasetTag), "Type", "Count",
		[]string{"match", "mismatch", "insertion", "deletion", "clipped"},
		[]float64{
			float64(st.Bases.Match),
			float64(st.Bases.Mismatch),
			float64(st.Bases.Insertion),
			float64(st.Bases.Deletion),
			float64(st.Bases.Clipped),
		}); err != nil {
		return err
	}
	if err := rep.Bars("Precision statistics", "Type", "Value",
		[]string{
			fmt.Sprintf("Identity (%.4f)", st.Identity()),
			fmt.Sprintf("Accuracy (%.4f)", st.Accuracy()),
		},
		[]float64{st.Identity(), st.Accuracy()}); err != nil {
		return err
	}
	accuracies := make([]float64, len(st.PerRead))
	identities := make([]float64, len(st.PerRead))
	for i, r := range st.PerRead {
		accuracies[i] = r.Accuracy
		identities[i] = r.Identity
	}
	if err := rep.Histogram("Distribution of per-read accuracies",
		"Accuracy", "Count", accuracies, 100); err != nil {
		return err
	}
	return rep.Histogram("Distribution of per-read identities",
		"Identity", "Count", identities, 100)
}

func main() {
	flag.Usage = bamAccuracyUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Exactly one positional argument (bampath) expected; please check flag syntax")
	}
	bamPath := flag.Arg(0)
	datasetTag := *tag
	if datasetTag == "" {
		datasetTag = filepath.Base(bamPath)
	}

	ctx := vcontext.Background()
	st, err := bamstats.ReadStats(ctx, bamPath, &bamstats.Opts{
		Region:    *region,
		MinMapQ:   *mapq,
		WithClips: *withClips,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	if st.Mapped == 0 {
		log.Printf("bam-accuracy: no mapped records passed the filters")
	}
	log.Printf("bam-accuracy: tag=%s accuracy=%.4f identity=%.4f mapped=%d unmapped=%d",
		datasetTag, st.Accuracy(), st.Identity(), st.Mapped, st.Unmapped)

	rep := report.New(*reportPath)
	if err = plotPages(rep, st, datasetTag); err != nil {
		log.Fatalf("%v", err)
	}
	if err = rep.Close(); err != nil {
		log.Fatalf("writing %s: %v", *reportPath, err)
	}

	if *globalPath != "" {
		if err = results.WriteAccuracyTSV(ctx, *globalPath, datasetTag, st); err != nil {
			log.Fatalf("writing %s: %v", *globalPath, err)
		}
	}
	if *readsPath != "" {
		if err = results.WriteReadTSV(ctx, *readsPath, st.PerRead); err != nil {
			log.Fatalf("writing %s: %v", *readsPath, err)
		}
	}
	if *jsonPath != "" {
		res := struct {
			Tag      string              `json:"tag"`
			Accuracy float64             `json:"accuracy"`
			Identity float64             `json:"identity"`
			Mapped   int                 `json:"mapped"`
			Unmapped int                 `json:"unmapped"`
			Bases    bamstats.BaseStats  `json:"base_stats"`
			PerRead  []bamstats.ReadStat `json:"per_read"`
		}{datasetTag, st.Accuracy(), st.Identity(), st.Mapped, st.Unmapped, st.Bases, st.PerRead}
		if err = results.DumpJSON(ctx, *jsonPath, res); err != nil {
			log.Fatalf("writing %s: %v", *jsonPath, err)
		}
	}
	log.Debug.Printf("exiting")
}
