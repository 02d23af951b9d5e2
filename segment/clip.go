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
package segment

import (
	"sort"
)

// AddClippedEnds appends clip placeholders to one read's labeled segments
// when the PASS aligned segments leave more than MinClipLen bases unaligned
// at either end of the read, and returns the read sorted by ReadStart.
//
// The leading placeholder is anchored at the reference start of the first
// PASS segment (its end, for reverse-strand segments); the trailing one at
// the reference end of the last PASS segment (its start, for reverse-strand
// segments).  Placeholders inherit the PASS label of the segment they were
// derived from.
func AddClippedEnds(read []*Segment) []*Segment {
	var pass []*Segment
	for _, s := range read {
		if s.Kind == Aligned && s.Label.Pass() {
			pass = append(pass, s)
		}
	}
	if len(pass) == 0 {
		return read
	}
	sort.SliceStable(pass, func(i, j int) bool { return pass[i].ReadStart < pass[j].ReadStart })
	first, last := pass[0], pass[len(pass)-1]
	if first.ReadStart > MinClipLen {
		pos := first.RefStart
		if first.Strand < 0 {
			pos = first.RefEnd
		}
		read = append(read, placeholderFrom(first, ClipLeading, 0, first.ReadStart, pos))
	}
	if endClip := last.ReadLen - last.ReadEnd; endClip > MinClipLen {
		pos := last.RefEnd
		if last.Strand < 0 {
			pos = last.RefStart
		}
		read = append(read, placeholderFrom(last, ClipTrailing, last.ReadEnd, last.ReadLen, pos))
	}
	sort.SliceStable(read, func(i, j int) bool { return read[i].ReadStart < read[j].ReadStart })
	return read
}

func placeholderFrom(s *Segment, side ClipSide, readStart, readEnd, pos int) *Segment {
	return &Segment{
		ReadID:       s.ReadID,
		Contig:       s.Contig,
		Sample:       s.Sample,
		RefStart:     pos,
		RefEnd:       pos,
		OrigRefStart: pos,
		OrigRefEnd:   pos,
		ReadStart:    readStart,
		ReadEnd:      readEnd,
		AlignStart:   readStart,
		Strand:       s.Strand,
		ReadLen:      s.ReadLen,
		AlignedLen:   s.AlignedLen,
		SegmentLen:   readEnd - readStart,
		Haplotype:    s.Haplotype,
		MapQ:         s.MapQ,
		Primary:      s.Primary,
		MismatchRate: s.MismatchRate,
		ErrorRate:    s.ErrorRate,
		Kind:         ClipPlaceholder,
		Label:        s.Label,
		Clip:         &ClipInfo{Side: side, Len: readEnd - readStart},
	}
}
