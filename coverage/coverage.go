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

// Package coverage aggregates per-reference, per-strand fragment coverage
// vectors onto a common scaled-position axis and computes the cov80
// completeness score (fraction of bases with normalized coverage above 0.8).
//
// References of different lengths are made comparable by rescaling each
// reference's position axis to [0,1) and linearly resampling its coverage
// onto a shared axis of Bins points.  Accumulation across references is
// plain elementwise addition, so the result does not depend on iteration
// order.
package coverage

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ReferenceSet maps reference name to reference length.  It defines which
// references participate in one Aggregate call and, when AggregateOpts.Bins
// is zero, determines the bin count (rounded mean length).
type ReferenceSet map[string]int

// AggregateOpts controls Aggregate.
type AggregateOpts struct {
	// Bins is the length of the common axis.  0 means the rounded mean of
	// the reference lengths.
	Bins int
	// LogScale requests log(coverage+1) display profiles alongside the raw
	// accumulated profiles.
	LogScale bool
	// ScalePosition rescales each reference's position axis to [0,1) before
	// resampling.
	ScalePosition bool
	// ScaleMagnitude normalizes each reference's coverage vector to sum to 1
	// before accumulation.  An all-zero vector is left unchanged.
	ScaleMagnitude bool
}

// DefaultOpts matches the defaults of the frag-coverage command.
var DefaultOpts = AggregateOpts{
	LogScale:      true,
	ScalePosition: true,
}

// AggregateProfile is the result of one Aggregate call.  Fwd/Rev always hold
// the raw accumulated coverage; PlotFwd/PlotRev hold the log(x+1)-transformed
// profiles when LogScale was requested and copies of the raw profiles
// otherwise.
type AggregateProfile struct {
	// X is the common scaled-position axis: Bins evenly spaced values in
	// [0,1).
	X []float64
	// Fwd and Rev are the accumulated per-strand profiles, each of length
	// Bins.
	Fwd []float64
	Rev []float64
	// PlotFwd and PlotRev are the display profiles (see LogScale).
	PlotFwd []float64
	PlotRev []float64
	// RefCov is the concatenation of the raw per-base coverage values of all
	// references in the set, in no particular order.
	RefCov []float64
	// Cov80 is CoverageScore(RefCov, 80).
	Cov80 float64
	// Bins is the profile length.
	Bins int

	noData bool
}

// NoData reports whether no reference in the set had any coverage on either
// strand.  Such a profile carries no Fwd/Rev/RefCov data and is a legitimate
// empty result, not an error.
func (p *AggregateProfile) NoData() bool { return p.noData }

// Resample builds the source axis and values for interpolating one
// reference's coverage vector onto a common axis.  x is 0..len(cov)-1,
// divided by len(cov) when scalePos is set.  y is a copy of cov, normalized
// to sum to 1 when scaleMag is set; an all-zero vector is returned
// unnormalized.
func Resample(cov []float64, scalePos, scaleMag bool) (x, y []float64) {
	n := len(cov)
	x = make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	if scalePos {
		floats.Scale(1/float64(n), x)
	}
	y = make([]float64, n)
	copy(y, cov)
	if scaleMag {
		if s := floats.Sum(y); s != 0 {
			floats.Scale(1/s, y)
		}
	}
	return x, y
}

// Interp evaluates the piecewise-linear function through (fx[i], fy[i]) at
// each point of xs.  fx must be strictly increasing.  Points outside
// [fx[0], fx[len(fx)-1]] are clamped to the boundary values, and a
// single-sample source yields a constant vector, so a length-1 coverage
// vector resamples without error.
func Interp(xs, fx, fy []float64) []float64 {
	out := make([]float64, len(xs))
	last := len(fx) - 1
	for i, x := range xs {
		switch {
		case x <= fx[0]:
			out[i] = fy[0]
		case x >= fx[last]:
			out[i] = fy[last]
		default:
			// Index of the first knot strictly right of x; x is inside
			// (fx[j-1], fx[j]).
			j := sort.SearchFloat64s(fx, x)
			if fx[j] == x {
				out[i] = fy[j]
				continue
			}
			t := (x - fx[j-1]) / (fx[j] - fx[j-1])
			out[i] = fy[j-1] + t*(fy[j]-fy[j-1])
		}
	}
	return out
}

// CoverageScore returns the fraction of values strictly above percent/100.
// With percent=80 this is the cov80 completeness score.  percent must be in
// (0,100] and values must be non-empty.
func CoverageScore(values []float64, percent float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("coverage.CoverageScore: empty value sequence")
	}
	if percent <= 0 || percent > 100 {
		return 0, errors.Errorf("coverage.CoverageScore: percent %v out of range (0,100]", percent)
	}
	threshold := percent / 100
	n := 0
	for _, v := range values {
		if v > threshold {
			n++
		}
	}
	return float64(n) / float64(len(values)), nil
}

// Aggregate resamples the coverage vectors of every reference in refs onto a
// common scaled-position axis and accumulates them per strand.  rawCov, fwd
// and rev map reference name to per-base coverage; a reference absent from
// fwd or rev has zero coverage on that strand.  refs must be non-empty.
func Aggregate(refs ReferenceSet, rawCov, fwd, rev map[string][]float64, opts AggregateOpts) (*AggregateProfile, error) {
	if len(refs) == 0 {
		return nil, errors.New("coverage.Aggregate: empty reference set")
	}
	bins := opts.Bins
	if bins == 0 {
		mean := 0.0
		for _, length := range refs {
			mean += float64(length)
		}
		mean /= float64(len(refs))
		bins = int(math.Round(mean))
	}
	if bins < 1 {
		return nil, errors.Errorf("coverage.Aggregate: non-positive bin count %d", bins)
	}

	x := make([]float64, bins)
	for i := range x {
		x[i] = float64(i) / float64(bins)
	}
	covFwd := make([]float64, bins)
	covRev := make([]float64, bins)
	var refCov []float64

	for name := range refs {
		refCov = append(refCov, rawCov[name]...)
		if cv := fwd[name]; len(cv) > 0 {
			fx, fy := Resample(cv, opts.ScalePosition, opts.ScaleMagnitude)
			floats.Add(covFwd, Interp(x, fx, fy))
		}
		if cv := rev[name]; len(cv) > 0 {
			rx, ry := Resample(cv, opts.ScalePosition, opts.ScaleMagnitude)
			floats.Add(covRev, Interp(x, rx, ry))
		}
	}

	if floats.Sum(covFwd)+floats.Sum(covRev) == 0 {
		return &AggregateProfile{X: x, Bins: bins, noData: true}, nil
	}

	plotFwd := make([]float64, bins)
	plotRev := make([]float64, bins)
	copy(plotFwd, covFwd)
	copy(plotRev, covRev)
	if opts.LogScale {
		for i := range plotFwd {
			plotFwd[i] = math.Log1p(plotFwd[i])
			plotRev[i] = math.Log1p(plotRev[i])
		}
	}

	cov80, err := CoverageScore(refCov, 80)
	if err != nil {
		return nil, errors.Wrap(err, "coverage.Aggregate: reference coverage")
	}
	return &AggregateProfile{
		X:       x,
		Fwd:     covFwd,
		Rev:     covRev,
		PlotFwd: plotFwd,
		PlotRev: plotRev,
		RefCov:  refCov,
		Cov80:   cov80,
		Bins:    bins,
	}, nil
}
