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
package coverage

import (
	"context"

	"github.com/KolmogorovLab/breakpoint-assembler/encoding/tsvfile"
	"github.com/KolmogorovLab/breakpoint-assembler/interval"
	"github.com/KolmogorovLab/breakpoint-assembler/readqual"
	"github.com/grailbio/base/errors"
)

const (
	// minLOHCov is the coverage a haplotype lane needs to count as present.
	minLOHCov = 3
	// maxLOHGap is the largest gap between flagged windows of one LOH region.
	maxLOHGap = 2000
	// MinLOHLen is the minimum length of a reported LOH region.
	MinLOHLen = 10000
)

// LOHRegion is a region where one haplotype of a target sample has lost
// coverage.
type LOHRegion struct {
	Contig     string
	Start, End int
	Sample     string
	// Haplotype is the lane that lost coverage (1 or 2).
	Haplotype int
}

// ExtractLOH compares every target sample against the control sample.  A
// window is a candidate for a target when one of its haplotype lanes has at
// most 3 reads and the other more than 3; the deficient lane is reported.
// The window is skipped when the control's H1 lane has at most 3 reads while
// its H2 lane has more than 3.  Candidate windows of one (target, haplotype)
// at most 2000 bases apart are merged, and regions of at least MinLOHLen
// bases are returned, ordered by contig, target and haplotype.
func (t *Table) ExtractLOH(control string, targets []string) ([]LOHRegion, error) {
	var regions []LOHRegion
	for _, contig := range t.contigs {
		c1, err := t.Hist(Key{control, 1, contig})
		if err != nil {
			return nil, err
		}
		c2, err := t.Hist(Key{control, 2, contig})
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			h1, err := t.Hist(Key{target, 1, contig})
			if err != nil {
				return nil, err
			}
			h2, err := t.Hist(Key{target, 2, contig})
			if err != nil {
				return nil, err
			}
			var lost [NumHaplotypes][]int
			for i := range h1 {
				if !(c1[i] > minLOHCov) && c2[i] > minLOHCov {
					continue
				}
				switch {
				case h1[i] <= minLOHCov && h2[i] > minLOHCov:
					lost[1] = append(lost[1], i)
				case h1[i] > minLOHCov && h2[i] <= minLOHCov:
					lost[2] = append(lost[2], i)
				}
			}
			for hp := 1; hp <= 2; hp++ {
				runs := interval.MergeWindows(lost[hp], WindowSize, maxLOHGap)
				for _, r := range interval.FilterRuns(runs, MinLOHLen) {
					regions = append(regions, LOHRegion{
						Contig:    contig,
						Start:     r.Start,
						End:       r.End,
						Sample:    target,
						Haplotype: hp,
					})
				}
			}
		}
	}
	return regions, nil
}

// WriteLOH writes regions as "chr_id start end genome_ids haplotype" lines.
func WriteLOH(ctx context.Context, path string, regions []LOHRegion) (err error) {
	w, err := tsvfile.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w.WriteString("#chr_id\tstart\tend\tgenome_ids\thaplotype")
	w.EndLine()
	for _, r := range regions {
		w.WriteString(r.Contig)
		w.WriteInt(r.Start)
		w.WriteInt(r.End)
		w.WriteString(r.Sample)
		w.WriteInt(r.Haplotype)
		w.EndLine()
	}
	return nil
}

// Region is a reference interval [Start, End).
type Region struct {
	Contig     string
	Start, End int
}

// ExtractSegdups merges directly adjacent elevated mismatch windows into
// regions, in the order of contigs.  Contigs absent from elevated are
// skipped.
func ExtractSegdups(elevated readqual.ElevatedMap, contigs []string) []Region {
	var regions []Region
	for _, contig := range contigs {
		for _, r := range interval.MergeWindows(elevated.Windows(contig), readqual.WindowSize, 0) {
			regions = append(regions, Region{Contig: contig, Start: r.Start, End: r.End})
		}
	}
	return regions
}

// WriteSegdups writes regions as "contig start end" lines.
func WriteSegdups(ctx context.Context, path string, regions []Region) (err error) {
	w, err := tsvfile.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()
	for _, r := range regions {
		w.WriteString(r.Contig)
		w.WriteInt(r.Start)
		w.WriteInt(r.End)
		w.EndLine()
	}
	return nil
}

// CheckSamples returns an error if control or a target is not in the table.
func (t *Table) CheckSamples(control string, targets []string) error {
	known := map[string]bool{}
	for _, s := range t.samples {
		known[s] = true
	}
	for _, s := range append([]string{control}, targets...) {
		if !known[s] {
			return errors.E(errors.Invalid, "coverage: unknown sample", s)
		}
	}
	return nil
}
