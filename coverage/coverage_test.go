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

package coverage_test

import (
	"testing"

	"github.com/alnstats/alnstats/coverage"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func constVec(n int, v float64) []float64 {
	vec := make([]float64, n)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

func TestCoverageScore(t *testing.T) {
	tests := []struct {
		values  []float64
		percent float64
		want    float64
	}{
		{[]float64{0.5, 0.9, 1.0, 1.5}, 80, 0.75},
		{[]float64{0.5, 0.9, 1.0, 1.5}, 100, 0.25},
		{[]float64{0.2, 0.4, 1.0}, 100, 0},
		{[]float64{1.1, 2.0, 3.0}, 100, 1},
		{[]float64{0, 0, 0}, 80, 0},
	}
	for _, tt := range tests {
		got, err := coverage.CoverageScore(tt.values, tt.percent)
		assert.NoError(t, err)
		expect.EQ(t, got, tt.want)
	}
}

func TestCoverageScoreInvalid(t *testing.T) {
	_, err := coverage.CoverageScore(nil, 80)
	expect.HasSubstr(t, err.Error(), "empty value sequence")
	_, err = coverage.CoverageScore([]float64{1}, 0)
	expect.HasSubstr(t, err.Error(), "out of range")
	_, err = coverage.CoverageScore([]float64{1}, 101)
	expect.HasSubstr(t, err.Error(), "out of range")
}

// CoverageScore must be monotonically non-increasing in percent.
func TestCoverageScoreMonotone(t *testing.T) {
	values := []float64{0.05, 0.3, 0.31, 0.5, 0.77, 0.81, 0.95, 1.2, 4.0}
	prev := 2.0
	for _, percent := range []float64{10, 25, 50, 75, 80, 90, 100} {
		got, err := coverage.CoverageScore(values, percent)
		assert.NoError(t, err)
		expect.True(t, got <= prev, "percent=%v: %v > %v", percent, got, prev)
		prev = got
	}
}

func TestResample(t *testing.T) {
	x, y := coverage.Resample([]float64{1, 3, 0, 4}, true, false)
	require.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75}, x, 1e-12)
	require.Equal(t, []float64{1, 3, 0, 4}, y)

	x, y = coverage.Resample([]float64{1, 3}, false, true)
	require.Equal(t, []float64{0, 1}, x)
	require.InDeltaSlice(t, []float64{0.25, 0.75}, y, 1e-12)

	// Zero-sum magnitude normalization leaves the vector unchanged.
	_, y = coverage.Resample([]float64{0, 0, 0}, true, true)
	require.Equal(t, []float64{0, 0, 0}, y)
}

func TestInterp(t *testing.T) {
	fx := []float64{0, 1, 2}
	fy := []float64{0, 10, 0}
	got := coverage.Interp([]float64{-1, 0, 0.5, 1, 1.5, 2, 3}, fx, fy)
	require.InDeltaSlice(t, []float64{0, 0, 5, 10, 5, 0, 0}, got, 1e-12)
}

// A single-sample coverage vector must resample to a constant vector rather
// than raise.
func TestInterpSinglePoint(t *testing.T) {
	got := coverage.Interp([]float64{0, 0.2, 0.4, 0.6, 0.8}, []float64{0}, []float64{3})
	require.Equal(t, constVec(5, 3.0), got)
}

func TestAggregateConstantCoverage(t *testing.T) {
	refs := coverage.ReferenceSet{"tr1": 100, "tr2": 100}
	fwd := map[string][]float64{
		"tr1": constVec(100, 2),
		"tr2": constVec(100, 2),
	}
	raw := map[string][]float64{
		"tr1": constVec(100, 1.5),
		"tr2": constVec(100, 0.5),
	}
	prof, err := coverage.Aggregate(refs, raw, fwd, nil, coverage.AggregateOpts{
		Bins:          10,
		ScalePosition: true,
	})
	assert.NoError(t, err)
	expect.False(t, prof.NoData())
	expect.EQ(t, prof.Bins, 10)
	require.Len(t, prof.Fwd, 10)
	require.Len(t, prof.Rev, 10)
	require.InDeltaSlice(t, constVec(10, 4), prof.Fwd, 1e-9)
	require.Equal(t, constVec(10, 0), prof.Rev)
	// With LogScale off the display profiles equal the raw ones.
	require.Equal(t, prof.Fwd, prof.PlotFwd)
	// Half the raw coverage values exceed 0.8.
	expect.EQ(t, prof.Cov80, 0.5)
}

func TestAggregateLogScale(t *testing.T) {
	refs := coverage.ReferenceSet{"tr1": 4}
	fwd := map[string][]float64{"tr1": constVec(4, 3)}
	raw := map[string][]float64{"tr1": constVec(4, 2)}
	prof, err := coverage.Aggregate(refs, raw, fwd, nil, coverage.AggregateOpts{
		Bins:          4,
		LogScale:      true,
		ScalePosition: true,
	})
	assert.NoError(t, err)
	require.Equal(t, constVec(4, 3), prof.Fwd)
	require.InDeltaSlice(t, constVec(4, 1.3862943611198906), prof.PlotFwd, 1e-12)
	expect.EQ(t, prof.Cov80, 1.0)
}

func TestAggregateAutoBins(t *testing.T) {
	// Mean of 10 and 15 rounds to 13 with standard rounding.
	refs := coverage.ReferenceSet{"a": 10, "b": 15}
	fwd := map[string][]float64{"a": constVec(10, 1)}
	raw := map[string][]float64{"a": constVec(10, 1), "b": constVec(15, 0)}
	prof, err := coverage.Aggregate(refs, raw, fwd, nil, coverage.AggregateOpts{ScalePosition: true})
	assert.NoError(t, err)
	expect.EQ(t, prof.Bins, 13)
	require.Len(t, prof.Fwd, 13)
}

// No reference with any entry in either strand mapping is a valid empty
// result, not an error.
func TestAggregateNoData(t *testing.T) {
	refs := coverage.ReferenceSet{"a": 10, "b": 20}
	raw := map[string][]float64{"a": constVec(10, 0), "b": constVec(20, 0)}
	prof, err := coverage.Aggregate(refs, raw, nil, nil, coverage.DefaultOpts)
	assert.NoError(t, err)
	expect.True(t, prof.NoData())
	expect.EQ(t, prof.Bins, 15)
	expect.EQ(t, len(prof.Fwd), 0)
	expect.EQ(t, len(prof.Rev), 0)
}

func TestAggregateEmptyRefs(t *testing.T) {
	_, err := coverage.Aggregate(nil, nil, nil, nil, coverage.DefaultOpts)
	expect.HasSubstr(t, err.Error(), "empty reference set")
}

func TestAggregateIdempotent(t *testing.T) {
	refs := coverage.ReferenceSet{"a": 50, "b": 70, "c": 20}
	fwd := map[string][]float64{"a": constVec(50, 1), "c": constVec(20, 5)}
	rev := map[string][]float64{"b": constVec(70, 2)}
	raw := map[string][]float64{"a": constVec(50, 1), "b": constVec(70, 2), "c": constVec(20, 0.1)}
	first, err := coverage.Aggregate(refs, raw, fwd, rev, coverage.DefaultOpts)
	assert.NoError(t, err)
	second, err := coverage.Aggregate(refs, raw, fwd, rev, coverage.DefaultOpts)
	assert.NoError(t, err)
	require.Equal(t, first.Fwd, second.Fwd)
	require.Equal(t, first.Rev, second.Rev)
	require.Equal(t, first.Cov80, second.Cov80)
}

// Accumulation is commutative addition, so permuting the reference set (maps
// iterate in random order anyway) must not move the result beyond float
// tolerance.  Exercised by comparing against a manual sum of per-reference
// profiles.
func TestAggregateOrderIndependent(t *testing.T) {
	refs := coverage.ReferenceSet{"a": 30, "b": 40, "c": 50, "d": 60}
	fwd := map[string][]float64{}
	raw := map[string][]float64{}
	for name, length := range refs {
		fwd[name] = constVec(length, float64(len(name)+length))
		raw[name] = constVec(length, 1)
	}
	opts := coverage.AggregateOpts{Bins: 16, ScalePosition: true}
	whole, err := coverage.Aggregate(refs, raw, fwd, nil, opts)
	assert.NoError(t, err)

	sum := make([]float64, 16)
	for name, length := range refs {
		single, err := coverage.Aggregate(
			coverage.ReferenceSet{name: length},
			map[string][]float64{name: raw[name]},
			map[string][]float64{name: fwd[name]},
			nil, opts)
		assert.NoError(t, err)
		for i, v := range single.Fwd {
			sum[i] += v
		}
	}
	require.InDeltaSlice(t, sum, whole.Fwd, 1e-9)
}
