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
package readqual

import (
	"sort"

	"github.com/KolmogorovLab/breakpoint-assembler/segment"
)

const (
	// bgWeightSpan is the reference span worth one copy of a mismatch rate in
	// the background sample.
	bgWeightSpan = 2000
	// BackgroundQuantile is the quantile of the weighted mismatch rates used
	// as the background threshold.
	BackgroundQuantile = 0.95
)

// WeightedRates is a list of mismatch rates with integer multiplicities.  It
// stands for the list in which every rate is repeated weight times.
type WeightedRates struct {
	rates   []float64
	weights []int
	total   int
}

// NewWeightedRates returns an empty list.
func NewWeightedRates() *WeightedRates {
	return &WeightedRates{}
}

// Add adds rate with weight ceil(span/2000), at least 1.
func (w *WeightedRates) Add(rate float64, span int) {
	n := (span + bgWeightSpan - 1) / bgWeightSpan
	if n < 1 {
		n = 1
	}
	w.rates = append(w.rates, rate)
	w.weights = append(w.weights, n)
	w.total += n
}

// AddSummaries adds the mismatch rate of every summary, weighted by its
// reference span.
func (w *WeightedRates) AddSummaries(sums []*segment.ReadSummary) {
	for _, s := range sums {
		w.Add(s.MismatchRate, s.RefEnd-s.RefStart)
	}
}

// AddSegments adds the mismatch rate of every aligned segment, weighted by
// its reference span.  Insertions and clip placeholders are skipped.
func (w *WeightedRates) AddSegments(segs []*segment.Segment) {
	for _, s := range segs {
		if s.Kind != segment.Aligned {
			continue
		}
		w.Add(s.MismatchRate, s.RefEnd-s.RefStart)
	}
}

// Merge appends the contents of o to w.
func (w *WeightedRates) Merge(o *WeightedRates) {
	w.rates = append(w.rates, o.rates...)
	w.weights = append(w.weights, o.weights...)
	w.total += o.total
}

// Len returns the length of the expanded list.
func (w *WeightedRates) Len() int { return w.total }

// Quantile returns the q-th quantile of the expanded list, interpolating
// linearly between the two nearest ranks.  It returns false if the list is
// empty.
func (w *WeightedRates) Quantile(q float64) (float64, bool) {
	if w.total == 0 {
		return 0, false
	}
	order := make([]int, len(w.rates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return w.rates[order[i]] < w.rates[order[j]] })

	h := q * float64(w.total-1)
	lo := int(h)
	frac := h - float64(lo)
	// at returns the value at position k of the expanded sorted list.
	cum, idx := 0, 0
	at := func(k int) float64 {
		for cum+w.weights[order[idx]] <= k {
			cum += w.weights[order[idx]]
			idx++
		}
		return w.rates[order[idx]]
	}
	vlo := at(lo)
	if lo+1 >= w.total || frac == 0 {
		return vlo, true
	}
	vhi := at(lo + 1)
	return vlo + (vhi-vlo)*frac, true
}

// Threshold returns the background mismatch threshold, the
// BackgroundQuantile of the list.  It returns false if the list is empty.
func (w *WeightedRates) Threshold() (float64, bool) {
	return w.Quantile(BackgroundQuantile)
}
