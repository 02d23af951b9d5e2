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
	"bytes"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chr1, _ = sam.NewReference("chr1", "", "", 100000000, nil, nil)

func newAux(name string, val interface{}) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(name), val)
	if err != nil {
		panic(err)
	}
	return aux
}

func newRecord(name string, pos int, flags sam.Flags, cigar sam.Cigar, aux ...sam.Aux) *sam.Record {
	r := sam.GetFromFreePool()
	r.Name = name
	r.Ref = chr1
	r.Pos = pos
	r.MapQ = 60
	r.Flags = flags
	r.Cigar = cigar
	r.AuxFields = append(sam.AuxFields{}, aux...)
	return r
}

func cigar(ops ...sam.CigarOp) sam.Cigar { return ops }

func op(t sam.CigarOpType, n int) sam.CigarOp { return sam.NewCigarOp(t, n) }

var testOpts = ExtractOpts{SVSize: 50}

func TestExtractSimpleRead(t *testing.T) {
	r := newRecord("r1", 1000, 0, cigar(op(sam.CigarMatch, 1000)), newAux("NM", 10), newAux("HP", 2))
	segs, sum, err := Extract(r, "s1", testOpts)
	require.NoError(t, err)
	assert.Empty(t, segs)
	require.NotNil(t, sum)
	assert.Equal(t, ReadSummary{
		Contig:       "chr1",
		RefStart:     1000,
		RefEnd:       2000,
		ReadLen:      1000,
		AlignedLen:   1000,
		Haplotype:    2,
		MismatchRate: 0.01,
		ErrorRate:    0.01,
		MapQ:         60,
	}, *sum)
}

func TestExtractSimpleReadClipPlaceholders(t *testing.T) {
	tests := []struct {
		flags     sam.Flags
		cigar     sam.Cigar
		wantPos   []int
		wantSide  []ClipSide
		wantRead  [][2]int
		wantCount int
	}{
		{
			// Leading clip on a forward read: anchored at the reference start.
			flags:     0,
			cigar:     cigar(op(sam.CigarSoftClipped, 600), op(sam.CigarMatch, 1000)),
			wantPos:   []int{5000},
			wantSide:  []ClipSide{ClipLeading},
			wantRead:  [][2]int{{0, 600}},
			wantCount: 1,
		},
		{
			// Leading clip on a reverse read: anchored at the reference end.
			flags:     sam.Reverse,
			cigar:     cigar(op(sam.CigarHardClipped, 700), op(sam.CigarMatch, 1000)),
			wantPos:   []int{6000},
			wantSide:  []ClipSide{ClipTrailing},
			wantRead:  [][2]int{{1000, 1700}},
			wantCount: 1,
		},
		{
			// Trailing clip on a reverse read: anchored at the reference start.
			flags:     sam.Reverse,
			cigar:     cigar(op(sam.CigarMatch, 1000), op(sam.CigarSoftClipped, 800)),
			wantPos:   []int{5000},
			wantSide:  []ClipSide{ClipLeading},
			wantRead:  [][2]int{{0, 800}},
			wantCount: 1,
		},
		{
			// Clips of exactly MinClipLen are not reported.
			flags:     0,
			cigar:     cigar(op(sam.CigarSoftClipped, 500), op(sam.CigarMatch, 1000), op(sam.CigarSoftClipped, 501)),
			wantPos:   []int{6000},
			wantSide:  []ClipSide{ClipTrailing},
			wantRead:  [][2]int{{1500, 2001}},
			wantCount: 1,
		},
	}
	for i, test := range tests {
		r := newRecord("r", 5000, test.flags, test.cigar, newAux("NM", 0))
		segs, sum, err := Extract(r, "s1", testOpts)
		require.NoError(t, err)
		require.NotNil(t, sum, "test %d", i)
		require.Len(t, segs, test.wantCount, "test %d", i)
		for j, s := range segs {
			assert.Equal(t, ClipPlaceholder, s.Kind)
			assert.Equal(t, test.wantPos[j], s.RefStart, "test %d", i)
			assert.Equal(t, test.wantPos[j], s.RefEnd, "test %d", i)
			assert.Equal(t, test.wantSide[j], s.Clip.Side, "test %d", i)
			assert.Equal(t, test.wantRead[j], [2]int{s.ReadStart, s.ReadEnd}, "test %d", i)
		}
	}
}

func TestExtractReverseDeletionSplit(t *testing.T) {
	r := newRecord("r1", 10000, sam.Reverse,
		cigar(op(sam.CigarMatch, 2000), op(sam.CigarDeletion, 5000), op(sam.CigarMatch, 2000)),
		newAux("NM", 5020))
	segs, sum, err := Extract(r, "s1", testOpts)
	require.NoError(t, err)
	assert.Nil(t, sum)
	require.Len(t, segs, 2)

	assert.Equal(t, Aligned, segs[0].Kind)
	assert.Equal(t, [2]int{10000, 12000}, [2]int{segs[0].RefStart, segs[0].RefEnd})
	assert.Equal(t, [2]int{2000, 4000}, [2]int{segs[0].ReadStart, segs[0].ReadEnd})

	assert.Equal(t, Aligned, segs[1].Kind)
	assert.Equal(t, [2]int{17000, 19000}, [2]int{segs[1].RefStart, segs[1].RefEnd})
	assert.Equal(t, [2]int{0, 2000}, [2]int{segs[1].ReadStart, segs[1].ReadEnd})

	for _, s := range segs {
		assert.Equal(t, int8(-1), s.Strand)
		assert.Equal(t, 4000, s.ReadLen)
		assert.Equal(t, 4000, s.AlignedLen)
		assert.Equal(t, 2000, s.SegmentLen)
		assert.InDelta(t, 20.0/4000, s.MismatchRate, 1e-12)
		assert.InDelta(t, 5020.0/4000, s.ErrorRate, 1e-12)
		assert.Equal(t, s.RefStart, s.OrigRefStart)
		assert.Equal(t, s.RefEnd, s.OrigRefEnd)
	}
}

func TestExtractShortSplitFolded(t *testing.T) {
	c := cigar(op(sam.CigarMatch, 3000), op(sam.CigarDeletion, 100), op(sam.CigarMatch, 300))

	// Supplementary: the folded segment is kept.
	r := newRecord("r1", 10000, sam.Supplementary, c, newAux("NM", 100))
	segs, sum, err := Extract(r, "s1", testOpts)
	require.NoError(t, err)
	assert.Nil(t, sum)
	require.Len(t, segs, 1)
	assert.Equal(t, 10000, segs[0].RefStart)
	assert.Equal(t, 13300, segs[0].RefEnd)
	assert.Equal(t, [2]int{10000, 13000}, [2]int{segs[0].OrigRefStart, segs[0].OrigRefEnd})
	// Read coordinates are not extended by the fold.
	assert.Equal(t, [2]int{0, 3000}, [2]int{segs[0].ReadStart, segs[0].ReadEnd})
	assert.False(t, segs[0].Primary)

	// Primary without SA: falls back to a summary.
	r = newRecord("r2", 10000, 0, c, newAux("NM", 100))
	segs, sum, err = Extract(r, "s1", testOpts)
	require.NoError(t, err)
	assert.Empty(t, segs)
	require.NotNil(t, sum)
	assert.Equal(t, 13400, sum.RefEnd)

	// Primary with SA: kept as a segment.
	r = newRecord("r3", 10000, 0, c, newAux("NM", 100), newAux("SA", "chr2,100,+,100M,60,0;"))
	segs, sum, err = Extract(r, "s1", testOpts)
	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.Len(t, segs, 1)
}

func TestExtractInsertion(t *testing.T) {
	seq := bytes.Repeat([]byte{'A'}, 1000)
	seq = append(seq, bytes.Repeat([]byte{'C'}, 200)...)
	seq = append(seq, bytes.Repeat([]byte{'G'}, 1000)...)

	r := newRecord("r1", 2000, 0,
		cigar(op(sam.CigarHardClipped, 100), op(sam.CigarMatch, 1000), op(sam.CigarInsertion, 200), op(sam.CigarMatch, 1000)),
		newAux("NM", 210))
	r.Seq = sam.NewSeq(seq)
	segs, sum, err := Extract(r, "s1", testOpts)
	require.NoError(t, err)
	require.NotNil(t, sum)
	require.Len(t, segs, 1)
	ins := segs[0]
	assert.Equal(t, Insertion, ins.Kind)
	assert.Equal(t, 3000, ins.RefStart)
	assert.Equal(t, 3000, ins.RefEnd)
	assert.Equal(t, [2]int{1100, 1300}, [2]int{ins.ReadStart, ins.ReadEnd})
	assert.Equal(t, 200, ins.SegmentLen)
	assert.Equal(t, 100, ins.AlignStart)
	require.NotNil(t, ins.Ins)
	assert.Equal(t, string(bytes.Repeat([]byte{'C'}, 200)), string(ins.Ins.Seq))
	assert.Equal(t, [2]int{2000, 4000}, [2]int{ins.Ins.AnchorStart, ins.Ins.AnchorEnd})
	assert.InDelta(t, 10.0/2200, ins.MismatchRate, 1e-12)
	assert.Equal(t, 2300, sum.ReadLen)
}

func TestExtractHaplotypeTag(t *testing.T) {
	c := cigar(op(sam.CigarMatch, 1000), op(sam.CigarDeletion, 1000), op(sam.CigarMatch, 1000))
	r := newRecord("r1", 0, sam.Supplementary, c, newAux("NM", 1000), newAux("HP", 1))
	segs, _, err := Extract(r, "s1", testOpts)
	require.NoError(t, err)
	for _, s := range segs {
		assert.Equal(t, 0, s.Haplotype)
	}
	segs, _, err = Extract(r, "s1", ExtractOpts{SVSize: 50, UseSupplementaryTag: true})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	for _, s := range segs {
		assert.Equal(t, 1, s.Haplotype)
	}
}

func TestExtractMalformed(t *testing.T) {
	r := newRecord("r1", 0, 0, cigar(op(sam.CigarMatch, 1000)))
	_, _, err := Extract(r, "s1", testOpts)
	require.Error(t, err)
	assert.Equal(t, ErrMalformedRecord, errors.Cause(err))

	r = newRecord("r2", 0, 0, cigar(op(sam.CigarSoftClipped, 1000)), newAux("NM", 0))
	_, _, err = Extract(r, "s1", testOpts)
	assert.Equal(t, ErrMalformedRecord, errors.Cause(err))
}

func TestAlignedLengthBound(t *testing.T) {
	cigars := []sam.Cigar{
		cigar(op(sam.CigarSoftClipped, 300), op(sam.CigarMatch, 800), op(sam.CigarDeletion, 60), op(sam.CigarMatch, 900), op(sam.CigarInsertion, 80), op(sam.CigarMatch, 700)),
		cigar(op(sam.CigarMatch, 100), op(sam.CigarDeletion, 600), op(sam.CigarMatch, 100), op(sam.CigarDeletion, 600), op(sam.CigarMatch, 2000)),
		cigar(op(sam.CigarMatch, 2000), op(sam.CigarDeletion, 20), op(sam.CigarMatch, 2000), op(sam.CigarSoftClipped, 4000)),
	}
	for _, flags := range []sam.Flags{sam.Supplementary, sam.Supplementary | sam.Reverse} {
		for i, c := range cigars {
			r := newRecord("r", 100, flags, c, newAux("NM", 900))
			segs, _, err := Extract(r, "s1", testOpts)
			require.NoError(t, err)
			total := 0
			for _, s := range segs {
				if s.Kind == Aligned {
					total += s.SegmentLen
					assert.True(t, s.RefStart <= s.RefEnd)
					assert.True(t, s.ReadStart >= 0 && s.ReadEnd <= s.ReadLen, "cigar %d: %v", i, s)
				}
			}
			require.NotEmpty(t, segs)
			assert.True(t, total <= segs[0].ReadLen, "cigar %d", i)
		}
	}
}
