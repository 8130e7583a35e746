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

// Package results serializes computed statistics: tab-separated tables for
// downstream tooling and JSON dumps of the raw result objects.
package results

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/alnstats/alnstats/bamstats"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// withTSVWriter creates path, hands a TSV writer to fn and flushes it.
func withTSVWriter(ctx context.Context, path string, fn func(*tsv.Writer) error) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	w := tsv.NewWriter(dst.Writer(ctx))
	if err = fn(w); err != nil {
		return err
	}
	return w.Flush()
}

// Cov80Row is one reference's coverage-completeness score.
type Cov80Row struct {
	Reference string
	Cov80     float64
}

// WriteCov80TSV writes a per-reference cov80 table with a Reference and a
// Cov80 column.
func WriteCov80TSV(ctx context.Context, path string, rows []Cov80Row) error {
	return withTSVWriter(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("Reference\tCov80")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, row := range rows {
			w.WriteString(row.Reference)
			w.WriteString(formatFloat(row.Cov80))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteGlobalCov80TSV writes the single global cov80 score.
func WriteGlobalCov80TSV(ctx context.Context, path string, cov80 float64) error {
	return withTSVWriter(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("GlobalCov80")
		if err := w.EndLine(); err != nil {
			return err
		}
		w.WriteString(formatFloat(cov80))
		return w.EndLine()
	})
}

// WriteAccuracyTSV writes the global precision statistics of one dataset.
func WriteAccuracyTSV(ctx context.Context, path, tag string, st *bamstats.AccuracyStats) error {
	return withTSVWriter(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("Accuracy\tIdentity\tMapped\tUnmapped\tTag")
		if err := w.EndLine(); err != nil {
			return err
		}
		w.WriteString(formatFloat(st.Accuracy()))
		w.WriteString(formatFloat(st.Identity()))
		w.WriteInt64(int64(st.Mapped))
		w.WriteInt64(int64(st.Unmapped))
		w.WriteString(tag)
		return w.EndLine()
	})
}

// WriteReadTSV writes one row of precision statistics per read.
func WriteReadTSV(ctx context.Context, path string, reads []bamstats.ReadStat) error {
	return withTSVWriter(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("Name\tReference\tAccuracy\tIdentity")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, r := range reads {
			w.WriteString(r.Name)
			w.WriteString(r.Ref)
			w.WriteString(formatFloat(r.Accuracy))
			w.WriteString(formatFloat(r.Identity))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}

// DumpJSON writes v to path as indented JSON.
func DumpJSON(ctx context.Context, path string, v interface{}) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	enc := json.NewEncoder(dst.Writer(ctx))
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
