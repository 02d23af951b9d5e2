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
// Package coverage maintains the per-sample, per-haplotype coverage
// histograms of 500-base windows, and derives loss-of-heterozygosity and
// segmental-duplication regions from them.
package coverage

import (
	"fmt"

	"github.com/KolmogorovLab/breakpoint-assembler/readstats"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

const (
	// WindowSize is the width of a coverage window.
	WindowSize = 500
	// NumHaplotypes is the number of haplotype lanes: 0 (unphased), 1 and 2.
	NumHaplotypes = 3
)

// Key identifies one histogram.
type Key struct {
	Sample    string
	Haplotype int
	Contig    string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/H%d/%s", k.Sample, k.Haplotype, k.Contig)
}

// Table holds one histogram per (sample, haplotype, contig).  A contig of
// length L has L/WindowSize+1 windows.
type Table struct {
	samples []string
	contigs []string
	lens    map[string]int
	hist    map[Key][]int
}

// NewTable returns a zeroed table for every combination of samples,
// haplotypes and contigs.  contigs gives the reporting order; lens must hold
// the length of each of them.
func NewTable(samples, contigs []string, lens map[string]int) (*Table, error) {
	t := &Table{
		samples: samples,
		contigs: contigs,
		lens:    lens,
		hist:    make(map[Key][]int, len(samples)*len(contigs)*NumHaplotypes),
	}
	for _, contig := range contigs {
		n, ok := lens[contig]
		if !ok {
			return nil, errors.E(errors.Invalid, "coverage.NewTable: no length for contig", contig)
		}
		for _, sample := range samples {
			for hp := 0; hp < NumHaplotypes; hp++ {
				t.hist[Key{sample, hp, contig}] = make([]int, n/WindowSize+1)
			}
		}
	}
	return t, nil
}

// Hist returns the histogram of key, or an error if the table has no such
// key.
func (t *Table) Hist(key Key) ([]int, error) {
	h, ok := t.hist[key]
	if !ok {
		return nil, errors.E(errors.NotExist, "coverage.Table: no histogram for", key.String())
	}
	return h, nil
}

// SummaryFilter selects the read summaries that contribute to the baseline
// coverage.
type SummaryFilter struct {
	// MinMapQ is exclusive: a summary needs MapQ > MinMapQ.
	MinMapQ int
	// Background is the mismatch-rate threshold; a summary needs a lower rate.
	Background float64
	// MinReadLen is exclusive: a summary needs ReadLen > MinReadLen.
	MinReadLen int
}

// Accept reports whether s passes f.  Besides the three thresholds, the
// unaligned part of the read must be shorter than its aligned part.
func (f SummaryFilter) Accept(s *segment.ReadSummary) bool {
	unaligned := s.ReadLen - s.AlignedLen
	if unaligned < 0 {
		unaligned = -unaligned
	}
	return s.MapQ > f.MinMapQ &&
		s.MismatchRate < f.Background &&
		s.ReadLen > f.MinReadLen &&
		unaligned < s.AlignedLen
}

// windowRange returns the first and last window touched by [start, end]
// clamped to the contig length.
func (t *Table) windowRange(contig string, start, end int) (int, int) {
	if n := t.lens[contig]; end > n {
		end = n
	}
	return start / WindowSize, end / WindowSize
}

// AddSummaries increments, for every summary of sample accepted by f, all
// windows from its start window to its end window inclusive.
func (t *Table) AddSummaries(sample string, sums []*segment.ReadSummary, f SummaryFilter) error {
	for _, s := range sums {
		if !f.Accept(s) {
			continue
		}
		h, err := t.Hist(Key{sample, s.Haplotype, s.Contig})
		if err != nil {
			return err
		}
		first, last := t.windowRange(s.Contig, s.RefStart, s.RefEnd)
		for i := first; i <= last; i++ {
			h[i]++
		}
	}
	return nil
}

// AddSegments increments, for every PASS aligned segment, the windows
// strictly between its original start and end windows.
func (t *Table) AddSegments(reads [][]*segment.Segment) error {
	for _, read := range reads {
		for _, s := range read {
			if s.Kind != segment.Aligned || !s.Label.Pass() {
				continue
			}
			h, err := t.Hist(Key{s.Sample, s.Haplotype, s.Contig})
			if err != nil {
				return err
			}
			first, last := t.windowRange(s.Contig, s.OrigRefStart, s.OrigRefEnd)
			for i := first + 1; i < last; i++ {
				h[i]++
			}
		}
	}
	return nil
}

// MedianCoverage returns the median window coverage of sample for each
// haplotype lane, over all contigs.
func (t *Table) MedianCoverage(sample string) [NumHaplotypes]float64 {
	var med [NumHaplotypes]float64
	for hp := 0; hp < NumHaplotypes; hp++ {
		var vals []float64
		for _, contig := range t.contigs {
			for _, v := range t.hist[Key{sample, hp, contig}] {
				vals = append(vals, float64(v))
			}
		}
		med[hp] = readstats.Quantiles(vals, 0.5)[0]
	}
	return med
}

// LogMedianCoverage logs the per-haplotype median coverage of every sample.
func (t *Table) LogMedianCoverage() {
	for _, sample := range t.samples {
		med := t.MedianCoverage(sample)
		log.Printf("\tMedian coverage by PASS reads for %s (H1 / H2 / H0): %.1f / %.1f / %.1f",
			sample, med[1], med[2], med[0])
	}
}
