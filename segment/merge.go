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

const (
	// DelMergeLen is the aligned length at or below which a segment split off
	// by a deletion is folded back into the preceding segment.
	DelMergeLen = 500
	// insDistRatio and maxInsDist bound the reference distance over which two
	// insertions of one record are combined.
	insDistRatio = 1.5
	maxInsDist   = 2000
)

// Merge coalesces the fragmentation artifacts of one record's segments and
// returns the remaining segments sorted by RefStart.  The returned slice
// shares storage with segs.
//
// Aligned segments: walking in reference order, a segment whose own aligned
// length exceeds DelMergeLen (or the first one) becomes the active segment;
// each shorter one is removed and the active segment's RefEnd grows by the
// shorter segment's aligned length.  The active segment's read coordinates
// are left unchanged.
//
// Insertion segments: the next insertion is absorbed into the active one if
// it starts no more than min(1.5 * (sum of both lengths), 2000) bases after
// the active one.  The combined insertion is anchored at the mean of the two
// anchors, and its sequence is the concatenation in read order.
func Merge(segs []*Segment) []*Segment {
	if len(segs) == 0 {
		return segs
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].RefStart < segs[j].RefStart })
	drop := make([]bool, len(segs))
	nDrop := 0

	var active *Segment
	for i, s := range segs {
		if s.Kind != Aligned {
			continue
		}
		if active == nil || s.SegmentLen > DelMergeLen {
			active = s
			continue
		}
		active.RefEnd += s.SegmentLen
		drop[i] = true
		nDrop++
	}

	active = nil
	for i, s := range segs {
		if s.Kind != Insertion {
			continue
		}
		if active == nil {
			active = s
			continue
		}
		limit := insDistRatio * float64(active.SegmentLen+s.SegmentLen)
		if limit > maxInsDist {
			limit = maxInsDist
		}
		if float64(s.RefStart-active.RefStart) > limit {
			active = s
			continue
		}
		absorbInsertion(active, s)
		drop[i] = true
		nDrop++
	}

	if nDrop == 0 {
		return segs
	}
	kept := segs[:0]
	for i, s := range segs {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(segs); i++ {
		segs[i] = nil
	}
	return kept
}

func absorbInsertion(active, s *Segment) {
	mid := (active.RefEnd + s.RefEnd) / 2
	active.RefStart, active.RefEnd = mid, mid
	active.OrigRefStart, active.OrigRefEnd = mid, mid
	active.SegmentLen += s.SegmentLen
	if active.Ins == nil {
		active.Ins = &InsertionInfo{}
	}
	var seq []byte
	if s.Ins != nil {
		seq = s.Ins.Seq
	}
	if active.Strand < 0 {
		active.ReadStart = active.ReadEnd - active.SegmentLen
		active.Ins.Seq = append(append(make([]byte, 0, len(seq)+len(active.Ins.Seq)), seq...), active.Ins.Seq...)
	} else {
		active.ReadEnd = active.ReadStart + active.SegmentLen
		active.Ins.Seq = append(active.Ins.Seq, seq...)
	}
}
