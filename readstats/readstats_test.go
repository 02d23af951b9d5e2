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
package readstats

import (
	"testing"

	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestNx(t *testing.T) {
	lengths := []int{100, 100, 100, 1000, 100, 100, 100, 100, 100, 100}
	l, n := Nx(lengths, 1900, 0.5)
	expect.EQ(t, l, 1)
	expect.EQ(t, n, 1000)

	// 1000 + 8*100 is the first sum above 0.9*1900.
	l, n = Nx(lengths, 1900, 0.9)
	expect.EQ(t, l, 9)
	expect.EQ(t, n, 100)

	// Input order is preserved.
	expect.EQ(t, lengths[3], 1000)

	l, n = Nx(nil, 0, 0.5)
	expect.EQ(t, l, 0)
	expect.EQ(t, n, 0)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		values []float64
		q      float64
		want   float64
	}{
		{[]float64{1, 2, 3, 4}, 0.25, 1.75},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4}, 0.75, 3.25},
		{[]float64{1, 2, 3, 4, 5}, 0.5, 3},
		{[]float64{1, 2, 3, 4, 5}, 0.95, 4.8},
		{[]float64{7}, 0.25, 7},
		{[]float64{0, 10}, 1, 10},
		{nil, 0.5, 0},
	}
	for _, test := range tests {
		assert.InDelta(t, test.want, Quantile(test.values, test.q), 1e-9, "%v %v", test.values, test.q)
	}
}

func TestQuantilesSorts(t *testing.T) {
	got := Quantiles([]float64{4, 1, 3, 2}, 0.25, 0.5, 0.75)
	expect.EQ(t, got, []float64{1.75, 2.5, 3.25})
}

func TestCompute(t *testing.T) {
	summaries := []*segment.ReadSummary{
		{ReadLen: 1000, AlignedLen: 900, ErrorRate: 0.1, MismatchRate: 0.01},
		{ReadLen: 2000, AlignedLen: 2000, ErrorRate: 0.2, MismatchRate: 0.02},
	}
	reads := [][]*segment.Segment{
		{
			{Kind: segment.Aligned, ReadLen: 5000, SegmentLen: 3000, ErrorRate: 0.3, MismatchRate: 0.03},
			{Kind: segment.Insertion, ReadLen: 5000, SegmentLen: 500},
			{Kind: segment.Aligned, ReadLen: 5000, SegmentLen: 1000},
			{Kind: segment.ClipPlaceholder, ReadLen: 5000, SegmentLen: 1000},
		},
	}
	st, ok := Compute(summaries, reads)
	expect.True(t, ok)
	expect.EQ(t, st.TotalReadLen, int64(8000))
	expect.EQ(t, st.TotalAlignedLen, int64(6900))
	assert.InDelta(t, 6900.0/8000, st.AlignedRate, 1e-12)
	expect.EQ(t, st.ReadN50, 5000)
	expect.EQ(t, st.ReadN90, 1000)
	// Alignments: 3000, 2000, 1000, 900 (total 6900).
	expect.EQ(t, st.AlignmentN50, 2000)
	expect.EQ(t, st.AlignmentN90, 900)
	assert.InDelta(t, 0.2, st.ErrorRate[1], 1e-12)
	assert.InDelta(t, 0.015, st.MismatchRate[0], 1e-12)

	expect.EQ(t, st.LengthFilter(ok, 7000), 900)
	expect.EQ(t, st.LengthFilter(ok, 500), 500)
}

func TestComputeEmpty(t *testing.T) {
	st, ok := Compute(nil, nil)
	expect.False(t, ok)
	expect.EQ(t, st.LengthFilter(ok, 7000), 7000)
}
