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
bias-explorer is a simple tool for exploring biases in transcript counts.
It takes a count table with length and GC-content features and performs
linear regression of log counts against both features.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/alnstats/alnstats/bias"
	"github.com/alnstats/alnstats/report"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

var (
	reportPath  = flag.String("report", "bias_explorer.pdf", "Output report PDF path")
	excludeZero = flag.Bool("exclude-zero", false, "Exclude references with zero counts")
)

func biasExplorerUsage() {
	fmt.Printf("Usage: %s [OPTIONS] count_file\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func regressionPage(rep *report.Report, x, logCount []float64, feature string) error {
	fit, err := bias.Regress(x, logCount)
	if err != nil {
		return err
	}
	log.Printf("bias-explorer: logCount ~ %s: alpha=%.4f beta=%.4g R2=%.4f",
		feature, fit.Alpha, fit.Beta, fit.R2)
	title := fmt.Sprintf("logCount vs %s (R2=%.4f)", feature, fit.R2)
	return rep.Regression(title, feature, "logCount", x, logCount, fit.Alpha, fit.Beta)
}

func main() {
	flag.Usage = biasExplorerUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Exactly one positional argument (count_file) expected; please check flag syntax")
	}
	table, err := bias.LoadCounts(flag.Arg(0))
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *excludeZero {
		table = table.ExcludeZero()
	}
	log.Printf("bias-explorer: %d references", len(table.Reference))

	rep := report.New(*reportPath)
	if err = regressionPage(rep, table.GC, table.LogCount, "GC_content"); err != nil {
		log.Fatalf("%v", err)
	}
	if err = regressionPage(rep, table.Length, table.LogCount, "Length"); err != nil {
		log.Fatalf("%v", err)
	}
	if err = rep.Close(); err != nil {
		log.Fatalf("writing %s: %v", *reportPath, err)
	}
	log.Debug.Printf("exiting")
}
