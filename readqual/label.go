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
	"context"
	"sort"

	"github.com/KolmogorovLab/breakpoint-assembler/encoding/tsvfile"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
)

// MinAlignedRatio is the aligned fraction of a read below which all of its
// segments are labeled LowAlignedLen.
const MinAlignedRatio = 0.5

// LabelRead finalizes the labels of the segments of one read.
//
// A segment is labeled LowMapQ if its mapping quality is below minMapQ, and
// HighMismatch if any window it overlaps (original bounds) is elevated and its
// own mismatch rate is at least bg.  If the read's aligned ratio is below
// MinAlignedRatio, every segment is also labeled LowAlignedLen.  The aligned
// ratio is the summed read span of the non-placeholder segments over the
// read length; a read without aligned segments uses its overall aligned
// length instead.
func LabelRead(read []*segment.Segment, minMapQ int, bg float64, elevated ElevatedMap) {
	if len(read) == 0 {
		return
	}
	hasAligned := false
	readSpan := 0
	for _, s := range read {
		var l segment.Label
		if s.MapQ < minMapQ {
			l |= segment.LowMapQ
		}
		if s.MismatchRate >= bg && elevated.Overlaps(s.Contig, s.OrigRefStart, s.OrigRefEnd) {
			l |= segment.HighMismatch
		}
		s.Label = l
		switch s.Kind {
		case segment.Aligned:
			hasAligned = true
			readSpan += s.ReadEnd - s.ReadStart
		case segment.Insertion:
			readSpan += s.ReadEnd - s.ReadStart
		}
	}
	alignedLen := readSpan
	if !hasAligned {
		alignedLen = read[0].AlignedLen
	}
	lowAligned := read[0].ReadLen <= 0 || float64(alignedLen)/float64(read[0].ReadLen) < MinAlignedRatio
	for _, s := range read {
		if lowAligned {
			s.Label |= segment.LowAlignedLen
		}
		s.Label = s.Label.Finalize()
	}
}

// QualCount is the number and total reference length of the aligned
// segments with one label.
type QualCount struct {
	Label     segment.Label
	Segments  int
	RefLength int
}

// CountLabels tallies the aligned segments of reads by label.  The result is
// sorted with PASS first, then by label string.
func CountLabels(reads [][]*segment.Segment) []QualCount {
	byLabel := map[segment.Label]*QualCount{}
	for _, read := range reads {
		for _, s := range read {
			if s.Kind != segment.Aligned {
				continue
			}
			c := byLabel[s.Label]
			if c == nil {
				c = &QualCount{Label: s.Label}
				byLabel[s.Label] = c
			}
			c.Segments++
			c.RefLength += s.RefEnd - s.RefStart
		}
	}
	counts := make([]QualCount, 0, len(byLabel))
	for _, c := range byLabel {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		pi, pj := counts[i].Label.Pass(), counts[j].Label.Pass()
		if pi != pj {
			return pi
		}
		return counts[i].Label.String() < counts[j].Label.String()
	})
	return counts
}

// WriteReport writes the read-quality summary of reads to path: one line per
// label with the number of aligned segments and their total reference
// length.
func WriteReport(ctx context.Context, path string, reads [][]*segment.Segment) (err error) {
	w, err := tsvfile.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w.WriteString("#label\tnum_segments\ttotal_length")
	w.EndLine()
	for _, c := range CountLabels(reads) {
		w.WriteString(c.Label.String())
		w.WriteInt(c.Segments)
		w.WriteInt(c.RefLength)
		w.EndLine()
	}
	return nil
}
