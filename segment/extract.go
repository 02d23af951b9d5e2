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
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// MinClipLen is the clip length a read end must exceed to get a clip
// placeholder.
const MinClipLen = 500

var (
	tagNM = sam.NewTag("NM")
	tagHP = sam.NewTag("HP")
	tagSA = sam.NewTag("SA")
)

// ErrMalformedRecord is wrapped by the errors Extract returns for records
// that cannot be segmented.
var ErrMalformedRecord = errors.New("malformed alignment record")

// ExtractOpts controls Extract.
type ExtractOpts struct {
	// SVSize is the minimum indel length that splits a record (deletions) or
	// produces an Insertion segment (insertions).
	SVSize int
	// UseSupplementaryTag makes Extract trust the HP tag of supplementary
	// records.  The HP tag of primary records is always used.
	UseSupplementaryTag bool
}

// AuxInt returns the integer value of an aux tag, and whether it was
// present with an integer type.
func AuxInt(r *sam.Record, tag sam.Tag) (int, bool) {
	aux := r.AuxFields.Get(tag)
	if aux == nil {
		return 0, false
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Haplotype returns the HP tag of r.  It returns 0 (unphased) if the tag is
// absent or is not 1 or 2.
func Haplotype(r *sam.Record) int {
	hp, _ := AuxInt(r, tagHP)
	if hp != 1 && hp != 2 {
		return 0
	}
	return hp
}

// cigarInfo holds the per-record quantities computed once from the full
// CIGAR.
type cigarInfo struct {
	readLen    int // all read-consuming ops, clips included
	alignedLen int // M/=/X/I
	indelLen   int // sum of I and D
	maxIndel   int
	leadClip   int // S+H before the first aligned op, CIGAR order
	leadHard   int // H before the first aligned op
	trailClip  int // S+H after the last aligned op
}

func scanCigar(cigar sam.Cigar) cigarInfo {
	var ci cigarInfo
	leading := true
	for _, co := range cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			ci.readLen += n
			ci.alignedLen += n
			leading = false
			ci.trailClip = 0
		case sam.CigarInsertion:
			ci.readLen += n
			ci.alignedLen += n
			ci.indelLen += n
			if n > ci.maxIndel {
				ci.maxIndel = n
			}
			leading = false
			ci.trailClip = 0
		case sam.CigarDeletion:
			ci.indelLen += n
			if n > ci.maxIndel {
				ci.maxIndel = n
			}
			leading = false
			ci.trailClip = 0
		case sam.CigarSkipped:
			leading = false
			ci.trailClip = 0
		case sam.CigarSoftClipped, sam.CigarHardClipped:
			ci.readLen += n
			if leading {
				ci.leadClip += n
				if co.Type() == sam.CigarHardClipped {
					ci.leadHard += n
				}
			} else {
				ci.trailClip += n
			}
		}
	}
	return ci
}

// recordContext carries the read-level values copied into every segment of
// one record.
type recordContext struct {
	r          *sam.Record
	sample     string
	contig     string
	strand     int8
	primary    bool
	haplotype  int
	mmRate     float64
	errRate    float64
	alignStart int
	ci         cigarInfo
	seq        []byte
}

func (rc *recordContext) newSegment(kind Kind, readStart, readEnd, refStart, refEnd, segLen int) *Segment {
	if rc.strand < 0 && kind != ClipPlaceholder {
		readStart, readEnd = rc.ci.readLen-readEnd, rc.ci.readLen-readStart
	}
	return &Segment{
		ReadID:       rc.r.Name,
		Contig:       rc.contig,
		Sample:       rc.sample,
		RefStart:     refStart,
		RefEnd:       refEnd,
		OrigRefStart: refStart,
		OrigRefEnd:   refEnd,
		ReadStart:    readStart,
		ReadEnd:      readEnd,
		AlignStart:   rc.alignStart,
		Strand:       rc.strand,
		ReadLen:      rc.ci.readLen,
		AlignedLen:   rc.ci.alignedLen,
		SegmentLen:   segLen,
		Haplotype:    rc.haplotype,
		MapQ:         int(rc.r.MapQ),
		Primary:      rc.primary,
		MismatchRate: rc.mmRate,
		ErrorRate:    rc.errRate,
		Kind:         kind,
	}
}

func (rc *recordContext) summary() *ReadSummary {
	return &ReadSummary{
		Contig:       rc.contig,
		RefStart:     rc.r.Pos,
		RefEnd:       rc.r.End(),
		ReadLen:      rc.ci.readLen,
		AlignedLen:   rc.ci.alignedLen,
		Haplotype:    rc.haplotype,
		MismatchRate: rc.mmRate,
		ErrorRate:    rc.errRate,
		MapQ:         int(rc.r.MapQ),
	}
}

// clipPlaceholders returns placeholders for the CIGAR-leading and
// CIGAR-trailing clips longer than MinClipLen.  The leading clip is anchored
// at the reference start for forward reads and at the reference end for
// reverse reads; the trailing clip mirrors that.
func (rc *recordContext) clipPlaceholders() []*Segment {
	var segs []*Segment
	readLen := rc.ci.readLen
	start, end := rc.r.Pos, rc.r.End()
	if c := rc.ci.leadClip; c > MinClipLen {
		pos, side, rs, re := start, ClipLeading, 0, c
		if rc.strand < 0 {
			pos, side, rs, re = end, ClipTrailing, readLen-c, readLen
		}
		s := rc.newSegment(ClipPlaceholder, rs, re, pos, pos, c)
		s.Clip = &ClipInfo{Side: side, Len: c}
		segs = append(segs, s)
	}
	if c := rc.ci.trailClip; c > MinClipLen {
		pos, side, rs, re := end, ClipTrailing, readLen-c, readLen
		if rc.strand < 0 {
			pos, side, rs, re = start, ClipLeading, 0, c
		}
		s := rc.newSegment(ClipPlaceholder, rs, re, pos, pos, c)
		s.Clip = &ClipInfo{Side: side, Len: c}
		segs = append(segs, s)
	}
	return segs
}

// insertedSeq returns the inserted bases for the alignment-orientation read
// interval [start, end), which counts hard-clipped bases.
func (rc *recordContext) insertedSeq(start, end int) []byte {
	if rc.seq == nil {
		rc.seq = rc.r.Seq.Expand()
	}
	start -= rc.ci.leadHard
	end -= rc.ci.leadHard
	if start < 0 || end > len(rc.seq) || start >= end {
		return nil
	}
	ins := make([]byte, end-start)
	copy(ins, rc.seq[start:end])
	return ins
}

// Extract segments one alignment record of the given sample.
//
// Simple records (primary, no SA tag, no indel of at least opts.SVSize) only
// yield a ReadSummary plus clip placeholders for long end clips.  Other
// records are walked in full: deletions of at least opts.SVSize split the
// record into Aligned segments and insertions of at least opts.SVSize become
// Insertion segments.  The result is merged (see Merge); if a primary record
// without SA tag ends up as a single Aligned segment, that segment is
// dropped in favor of a ReadSummary.
//
// Every returned segment carries the record's read length, aligned length,
// mismatch rate ((NM - indels) / aligned) and error rate (NM / aligned).
func Extract(r *sam.Record, sample string, opts ExtractOpts) ([]*Segment, *ReadSummary, error) {
	if r.Ref == nil {
		return nil, nil, errors.Wrapf(ErrMalformedRecord, "read %s: no reference", r.Name)
	}
	nm, ok := AuxInt(r, tagNM)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMalformedRecord, "read %s at %s:%d: missing NM tag", r.Name, r.Ref.Name(), r.Pos)
	}
	rc := recordContext{
		r:       r,
		sample:  sample,
		contig:  r.Ref.Name(),
		strand:  1,
		primary: r.Flags&sam.Supplementary == 0,
		ci:      scanCigar(r.Cigar),
	}
	if rc.ci.alignedLen == 0 {
		return nil, nil, errors.Wrapf(ErrMalformedRecord, "read %s at %s:%d: no aligned bases", r.Name, r.Ref.Name(), r.Pos)
	}
	if r.Flags&sam.Reverse != 0 {
		rc.strand = -1
		rc.alignStart = rc.ci.trailClip
	} else {
		rc.alignStart = rc.ci.leadClip
	}
	rc.mmRate = float64(nm-rc.ci.indelLen) / float64(rc.ci.alignedLen)
	rc.errRate = float64(nm) / float64(rc.ci.alignedLen)
	if opts.UseSupplementaryTag || rc.primary {
		rc.haplotype = Haplotype(r)
	}
	hasSA := r.AuxFields.Get(tagSA) != nil
	simple := rc.primary && !hasSA

	if simple && rc.ci.maxIndel < opts.SVSize {
		return rc.clipPlaceholders(), rc.summary(), nil
	}

	segs := rc.walk(opts.SVSize)
	segs = Merge(segs)

	if simple {
		nAligned := 0
		for _, s := range segs {
			if s.Kind == Aligned {
				nAligned++
			}
		}
		if nAligned == 1 {
			kept := segs[:0]
			for _, s := range segs {
				if s.Kind == Insertion {
					kept = append(kept, s)
				}
			}
			return append(kept, rc.clipPlaceholders()...), rc.summary(), nil
		}
	}
	return segs, nil, nil
}

// walk emits the Aligned and Insertion segments of the record.  Read
// coordinates are tracked in alignment orientation and flipped by
// newSegment for reverse-strand records.
func (rc *recordContext) walk(svSize int) []*Segment {
	var segs []*Segment
	readStart := rc.ci.leadClip
	refStart := rc.r.Pos
	readAligned, refAligned := 0, 0
	for _, co := range rc.r.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			readAligned += n
			refAligned += n
		case sam.CigarDeletion, sam.CigarSkipped:
			if n < svSize {
				refAligned += n
				continue
			}
			refEnd := refStart + refAligned
			readEnd := readStart + readAligned
			segs = append(segs, rc.newSegment(Aligned, readStart, readEnd, refStart, refEnd, readAligned))
			readStart = readEnd
			refStart = refEnd + n
			readAligned, refAligned = 0, 0
		case sam.CigarInsertion:
			if n < svSize {
				readAligned += n
				continue
			}
			insStart := readStart + readAligned
			insPos := refStart + refAligned
			readAligned += n
			s := rc.newSegment(Insertion, insStart, insStart+n, insPos, insPos, n)
			s.Ins = &InsertionInfo{
				Seq:         rc.insertedSeq(insStart, insStart+n),
				AnchorStart: rc.r.Pos,
				AnchorEnd:   rc.r.End(),
			}
			segs = append(segs, s)
		}
	}
	if refAligned != 0 {
		segs = append(segs, rc.newSegment(Aligned, readStart, readStart+readAligned, refStart, refStart+refAligned, readAligned))
	}
	return segs
}
