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

package interval_test

import (
	"testing"

	"github.com/alnstats/alnstats/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestParseLengthIntervals(t *testing.T) {
	intervals, err := interval.ParseLengthIntervals("")
	assert.NoError(t, err)
	expect.EQ(t, len(intervals), 0)

	intervals, err = interval.ParseLengthIntervals("0:1000,1000:2000,2000:0")
	assert.NoError(t, err)
	require.Equal(t, []interval.LengthInterval{
		{Min: 0, Max: 1000},
		{Min: 1000, Max: 2000},
		{Min: 2000, Max: 0},
	}, intervals)

	for _, bad := range []string{"100", "a:b", "100:50", "-1:100"} {
		_, err = interval.ParseLengthIntervals(bad)
		expect.NotNil(t, err, "input %q", bad)
	}
}

func TestLengthIntervalFilter(t *testing.T) {
	refLens := map[string]int{"short": 100, "mid": 1500, "long": 4000}
	tests := []struct {
		iv   interval.LengthInterval
		want map[string]int
	}{
		{interval.LengthInterval{Min: 0, Max: 1000}, map[string]int{"short": 100}},
		{interval.LengthInterval{Min: 1000, Max: 2000}, map[string]int{"mid": 1500}},
		{interval.LengthInterval{Min: 2000, Max: 0}, map[string]int{"long": 4000}},
		{interval.LengthInterval{Min: 0, Max: 0}, refLens},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.iv.Filter(refLens), "interval %v", tt.iv)
	}
}

func TestParseRegion(t *testing.T) {
	region, err := interval.ParseRegion("chr1:100-200")
	assert.NoError(t, err)
	expect.EQ(t, region, interval.Region{ChrName: "chr1", Start0: 99, End: 200})

	region, err = interval.ParseRegion("chr1:100")
	assert.NoError(t, err)
	expect.EQ(t, region, interval.Region{ChrName: "chr1", Start0: 99, End: 100})

	region, err = interval.ParseRegion("chrM")
	assert.NoError(t, err)
	expect.EQ(t, region.ChrName, "chrM")
	expect.EQ(t, region.Start0, interval.PosType(0))

	for _, bad := range []string{"", ":100-200", "chr1:0", "chr1:200-100"} {
		_, err = interval.ParseRegion(bad)
		expect.NotNil(t, err, "input %q", bad)
	}
}

func TestRegionOverlaps(t *testing.T) {
	region := interval.Region{ChrName: "chr2", Start0: 100, End: 200}
	expect.True(t, region.Overlaps("chr2", 150, 160))
	expect.True(t, region.Overlaps("chr2", 199, 300))
	expect.False(t, region.Overlaps("chr2", 200, 300))
	expect.False(t, region.Overlaps("chr2", 0, 100))
	expect.False(t, region.Overlaps("chr1", 150, 160))
}
