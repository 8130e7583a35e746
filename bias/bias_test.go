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

package bias_test

import (
	"math"
	"strings"
	"testing"

	"github.com/alnstats/alnstats/bias"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const countsTSV = "Reference\tCount\tLength\tGC_content\n" +
	"tr1\t0\t1000\t0.41\n" +
	"tr2\t9\t1500\t0.52\n" +
	"tr3\t99\t2000\t0.63\n"

func TestReadCounts(t *testing.T) {
	table, err := bias.ReadCounts(strings.NewReader(countsTSV))
	assert.NoError(t, err)
	require.Equal(t, []string{"tr1", "tr2", "tr3"}, table.Reference)
	require.Equal(t, []float64{0, 9, 99}, table.Count)
	require.Equal(t, []float64{1000, 1500, 2000}, table.Length)
	require.InDeltaSlice(t, []float64{0, math.Log(10), math.Log(100)}, table.LogCount, 1e-12)
}

func TestReadCountsMissingColumn(t *testing.T) {
	_, err := bias.ReadCounts(strings.NewReader("Reference\tCount\nx\t1\n"))
	expect.HasSubstr(t, err.Error(), "missing column Length")
}

func TestExcludeZero(t *testing.T) {
	table, err := bias.ReadCounts(strings.NewReader(countsTSV))
	assert.NoError(t, err)
	nonzero := table.ExcludeZero()
	require.Equal(t, []string{"tr2", "tr3"}, nonzero.Reference)
	require.Equal(t, []float64{9, 99}, nonzero.Count)
	// The original table is untouched.
	expect.EQ(t, len(table.Reference), 3)
}

func TestRegress(t *testing.T) {
	// Exact line y = 1 + 2x.
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}
	fit, err := bias.Regress(x, y)
	assert.NoError(t, err)
	require.InDelta(t, 1, fit.Alpha, 1e-12)
	require.InDelta(t, 2, fit.Beta, 1e-12)
	require.InDelta(t, 1, fit.R2, 1e-12)

	_, err = bias.Regress([]float64{1}, []float64{1})
	expect.HasSubstr(t, err.Error(), "at least 2 points")
	_, err = bias.Regress([]float64{1, 2}, []float64{1})
	expect.HasSubstr(t, err.Error(), "length mismatch")
}
