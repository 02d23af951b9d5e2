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
	"fmt"
	"strings"
)

// Kind discriminates the three segment variants.
type Kind uint8

const (
	// Aligned is a contiguous reference-aligned block of a read.
	Aligned Kind = iota
	// Insertion is an inserted sequence of at least the SV size threshold,
	// anchored at a single reference position.
	Insertion
	// ClipPlaceholder is a zero-length segment marking a long unaligned read
	// end, i.e. a suspected unresolved breakpoint.
	ClipPlaceholder
)

func (k Kind) String() string {
	switch k {
	case Aligned:
		return "aligned"
	case Insertion:
		return "insertion"
	case ClipPlaceholder:
		return "clip"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ClipSide tells which end of the read (in forward-read orientation) a clip
// placeholder stands for.
type ClipSide uint8

const (
	// ClipLeading is the read's 5' end.
	ClipLeading ClipSide = iota
	// ClipTrailing is the read's 3' end.
	ClipTrailing
)

// InsertionInfo is the payload of an Insertion segment.
type InsertionInfo struct {
	// Seq is the inserted subsequence, as stored in the record (reference
	// orientation).
	Seq []byte
	// AnchorStart and AnchorEnd are the reference span of the record the
	// insertion came from.
	AnchorStart, AnchorEnd int
}

// ClipInfo is the payload of a ClipPlaceholder segment.
type ClipInfo struct {
	Side ClipSide
	// Len is the number of unaligned bases at that end of the read.
	Len int
}

// Label is the quality label of a segment: a set of failure flags plus a
// "finalized" bit.  The zero value is an unlabeled segment.
type Label uint8

const (
	// LowMapQ means the record's mapping quality is below the minimum.
	LowMapQ Label = 1 << iota
	// HighMismatch means the segment overlaps an elevated-mismatch window and
	// its own mismatch rate is at least the background threshold.
	HighMismatch
	// LowAlignedLen means less than half of the read is aligned.
	LowAlignedLen

	labelFinal
)

const failureMask = LowMapQ | HighMismatch | LowAlignedLen

// Failures returns the failure flags of l.
func (l Label) Failures() Label { return l & failureMask }

// Final reports whether the label has been finalized.
func (l Label) Final() bool { return l&labelFinal != 0 }

// Pass reports whether l is a finalized label with no failure flags.
func (l Label) Pass() bool { return l == labelFinal }

// Finalize marks the label as complete.
func (l Label) Finalize() Label { return l | labelFinal }

// String renders the label as "PASS", or the concatenated failure tags
// (e.g. "_LOW_MAPQ_HIGH_MM_rate").  An unlabeled segment renders as "".
func (l Label) String() string {
	if l.Pass() {
		return "PASS"
	}
	var sb strings.Builder
	if l&LowMapQ != 0 {
		sb.WriteString("_LOW_MAPQ")
	}
	if l&HighMismatch != 0 {
		sb.WriteString("_HIGH_MM_rate")
	}
	if l&LowAlignedLen != 0 {
		sb.WriteString("_LOW_ALIGNED_LEN")
	}
	return sb.String()
}

// Segment is one aligned block, large insertion or clip placeholder of a
// read.
//
// RefStart/RefEnd are working coordinates that later merge steps may move.
// OrigRefStart/OrigRefEnd are frozen when the segment is created (insertion
// merging refreshes them) and are the ones used for histogram placement.
// ReadStart/ReadEnd are in forward-read orientation.
type Segment struct {
	ReadID string
	Contig string
	Sample string

	RefStart, RefEnd         int
	OrigRefStart, OrigRefEnd int
	ReadStart, ReadEnd       int
	// AlignStart is the clip length at the read's 5' end.
	AlignStart int

	// Strand is +1 or -1.
	Strand int8
	// ReadLen is the full read length, hard clips included.
	ReadLen int
	// AlignedLen is the aligned (non-clip, non-deletion) length of the whole
	// record.
	AlignedLen int
	// SegmentLen is this segment's own aligned length.
	SegmentLen int
	// Haplotype is 0 (unassigned) or the HP tag value.
	Haplotype int
	MapQ      int
	Primary   bool

	MismatchRate float64
	ErrorRate    float64

	Kind  Kind
	Label Label

	// Ins is set only for Insertion segments.
	Ins *InsertionInfo
	// Clip is set only for ClipPlaceholder segments.
	Clip *ClipInfo
}

// IsAligned reports whether s is an Aligned segment.
func (s *Segment) IsAligned() bool { return s.Kind == Aligned }

// IsInsertion reports whether s is an Insertion segment.
func (s *Segment) IsInsertion() bool { return s.Kind == Insertion }

// IsClip reports whether s is a ClipPlaceholder segment.
func (s *Segment) IsClip() bool { return s.Kind == ClipPlaceholder }

func (s *Segment) String() string {
	return fmt.Sprintf("read_start=%d read_end=%d ref_start=%d ref_end=%d read_id=%s ref_id=%s strand=%d read_length=%d haplotype=%d mapq=%d mismatch_rate=%.4f read_qual=%s genome_id=%s kind=%v",
		s.ReadStart, s.ReadEnd, s.RefStart, s.RefEnd, s.ReadID, s.Contig, s.Strand,
		s.ReadLen, s.Haplotype, s.MapQ, s.MismatchRate, s.Label, s.Sample, s.Kind)
}

// ReadSummary is the compact record kept for a simple read: primary, no
// supplementary alignment, and no indel at or above the SV size threshold.
type ReadSummary struct {
	Contig           string
	RefStart, RefEnd int
	ReadLen          int
	AlignedLen       int
	Haplotype        int
	MismatchRate     float64
	ErrorRate        float64
	MapQ             int
}
