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

// Package bias explores count-based biases in transcript counts: it loads
// per-reference count tables with length and GC-content features and
// regresses log counts against those features.
package bias

import (
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// CountTable holds one row per reference of a count table produced by a
// read-counting tool, with logCount = log(count+1) precomputed.
type CountTable struct {
	Reference []string
	Count     []float64
	Length    []float64
	GC        []float64
	LogCount  []float64
}

// requiredCols are the count-table columns the explorer needs.
var requiredCols = []string{"Reference", "Count", "Length", "GC_content"}

// ReadCounts parses a tab-separated count table with at least the columns
// Reference, Count, Length and GC_content.
func ReadCounts(r io.Reader) (*CountTable, error) {
	df := dataframe.ReadCSV(r, dataframe.WithDelimiter('\t'), dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "bias: parsing count table")
	}
	names := make(map[string]bool, len(df.Names()))
	for _, name := range df.Names() {
		names[name] = true
	}
	for _, col := range requiredCols {
		if !names[col] {
			return nil, errors.Errorf("bias: count table is missing column %s", col)
		}
	}
	table := &CountTable{
		Reference: df.Col("Reference").Records(),
		Count:     df.Col("Count").Float(),
		Length:    df.Col("Length").Float(),
		GC:        df.Col("GC_content").Float(),
	}
	table.LogCount = make([]float64, len(table.Count))
	for i, c := range table.Count {
		if math.IsNaN(c) || c < 0 {
			return nil, errors.Errorf("bias: invalid count for reference %s", table.Reference[i])
		}
		table.LogCount[i] = math.Log1p(c)
	}
	return table, nil
}

// LoadCounts reads the (optionally gzipped) count table at path.
func LoadCounts(path string) (table *CountTable, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, err
		}
	}
	return ReadCounts(reader)
}

// ExcludeZero returns a copy of the table without zero-count rows.
func (t *CountTable) ExcludeZero() *CountTable {
	out := &CountTable{}
	for i, c := range t.Count {
		if c <= 0 {
			continue
		}
		out.Reference = append(out.Reference, t.Reference[i])
		out.Count = append(out.Count, c)
		out.Length = append(out.Length, t.Length[i])
		out.GC = append(out.GC, t.GC[i])
		out.LogCount = append(out.LogCount, t.LogCount[i])
	}
	return out
}

// Fit is a simple linear regression result for y = Alpha + Beta*x.
type Fit struct {
	Alpha float64
	Beta  float64
	R2    float64
}

// Regress fits y against x by ordinary least squares.
func Regress(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, errors.Errorf("bias: regression length mismatch (%d vs %d)", len(x), len(y))
	}
	if len(x) < 2 {
		return Fit{}, errors.Errorf("bias: need at least 2 points for regression, have %d", len(x))
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Fit{
		Alpha: alpha,
		Beta:  beta,
		R2:    stat.RSquared(x, y, nil, alpha, beta),
	}, nil
}
