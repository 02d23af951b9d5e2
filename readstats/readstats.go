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
// Package readstats computes length and error-rate statistics over the
// alignments of one sample: N50/N90 (with their L values) for read and
// alignment lengths, and quartiles of the per-read error and mismatch rates.
package readstats

import (
	"sort"

	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/log"
)

// Stats is the summary of one sample's alignments.
type Stats struct {
	TotalReadLen    int64
	TotalAlignedLen int64
	// AlignedRate is TotalAlignedLen / TotalReadLen.
	AlignedRate float64

	ReadN50, ReadN90           int
	AlignmentN50, AlignmentN90 int

	// ErrorRate and MismatchRate hold the 25th, 50th and 75th percentiles.
	ErrorRate    [3]float64
	MismatchRate [3]float64
}

// quartiles are the quantiles reported in Stats.
var quartiles = []float64{0.25, 0.50, 0.75}

// Nx sorts a copy of lengths in descending order and accumulates them until
// the running sum exceeds rate*total.  It returns the number of items
// consumed (the L value) and the length of the last item consumed (the N
// value).  If the sum never exceeds the limit, n is 0 and l is len(lengths).
func Nx(lengths []int, total int64, rate float64) (l, n int) {
	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	limit := rate * float64(total)
	var sum int64
	for _, v := range sorted {
		sum += int64(v)
		l++
		if float64(sum) > limit {
			return l, v
		}
	}
	return l, 0
}

// Quantile returns the q-th quantile of sorted (ascending) values, linearly
// interpolating between the two nearest ranks.  It returns 0 for an empty
// slice.
func Quantile(sorted []float64, q float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	h := q * float64(len(sorted)-1)
	lo := int(h)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// Quantiles sorts values in place and returns the quantile for each q.
func Quantiles(values []float64, qs ...float64) []float64 {
	sort.Float64s(values)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = Quantile(values, q)
	}
	return out
}

// Compute aggregates the simple-read summaries and the segmented reads of
// one sample.  Each read of reads is the list of segments of one read id;
// its read length and rates are taken from the first segment, and every
// aligned segment contributes one alignment length.  Compute returns false
// if there are no alignment lengths.
func Compute(summaries []*segment.ReadSummary, reads [][]*segment.Segment) (Stats, bool) {
	var (
		readLens, alnLens []int
		errRates, mmRates []float64
		st                Stats
	)
	for _, s := range summaries {
		readLens = append(readLens, s.ReadLen)
		alnLens = append(alnLens, s.AlignedLen)
		errRates = append(errRates, s.ErrorRate)
		mmRates = append(mmRates, s.MismatchRate)
	}
	for _, read := range reads {
		if len(read) == 0 {
			continue
		}
		readLens = append(readLens, read[0].ReadLen)
		errRates = append(errRates, read[0].ErrorRate)
		mmRates = append(mmRates, read[0].MismatchRate)
		for _, s := range read {
			if s.Kind == segment.Aligned {
				alnLens = append(alnLens, s.SegmentLen)
			}
		}
	}
	if len(alnLens) == 0 {
		return st, false
	}
	for _, v := range readLens {
		st.TotalReadLen += int64(v)
	}
	for _, v := range alnLens {
		st.TotalAlignedLen += int64(v)
	}
	if st.TotalReadLen > 0 {
		st.AlignedRate = float64(st.TotalAlignedLen) / float64(st.TotalReadLen)
	}
	_, st.ReadN50 = Nx(readLens, st.TotalReadLen, 0.50)
	_, st.ReadN90 = Nx(readLens, st.TotalReadLen, 0.90)
	_, st.AlignmentN50 = Nx(alnLens, st.TotalAlignedLen, 0.50)
	_, st.AlignmentN90 = Nx(alnLens, st.TotalAlignedLen, 0.90)
	copy(st.ErrorRate[:], Quantiles(errRates, quartiles...))
	copy(st.MismatchRate[:], Quantiles(mmRates, quartiles...))
	return st, true
}

// LengthFilter returns the minimum read length used by the coverage
// histogram: the alignment N90 capped at floor.  If ok is false (no
// statistics), it returns floor.
func (st Stats) LengthFilter(ok bool, floor int) int {
	if !ok || st.AlignmentN90 > floor {
		return floor
	}
	return st.AlignmentN90
}

// Log writes st to the info log.
func (st Stats) Log(sample string) {
	log.Printf("Read statistics for %s", sample)
	log.Printf("\tTotal read length: %d", st.TotalReadLen)
	log.Printf("\tTotal aligned length: %d (%.2f)", st.TotalAlignedLen, st.AlignedRate)
	log.Printf("\tRead N50 / N90: %d / %d", st.ReadN50, st.ReadN90)
	log.Printf("\tAlignments N50 / N90: %d / %d", st.AlignmentN50, st.AlignmentN90)
	log.Printf("\tRead error rate (Q25 / Q50 / Q75): %.4f / %.4f / %.4f",
		st.ErrorRate[0], st.ErrorRate[1], st.ErrorRate[2])
	log.Printf("\tRead mismatch rate (Q25 / Q50 / Q75): %.4f / %.4f / %.4f",
		st.MismatchRate[0], st.MismatchRate[1], st.MismatchRate[2])
}
