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
package bamprovider_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KolmogorovLab/breakpoint-assembler/encoding/bamprovider"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/require"
)

var (
	chr1, _ = sam.NewReference("chr1", "", "", 100000, nil, nil)
	chr2, _ = sam.NewReference("chr2", "", "", 50000, nil, nil)
	header, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
)

func newRec(t *testing.T, name string, ref *sam.Reference, pos, n int) *sam.Record {
	r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60,
		sam.Cigar{sam.NewCigarOp(sam.CigarMatch, n)},
		bytes.Repeat([]byte{'A'}, n), bytes.Repeat([]byte{30}, n), nil)
	require.NoError(t, err)
	return r
}

func testRecords(t *testing.T) []*sam.Record {
	return []*sam.Record{
		newRec(t, "r1", chr1, 100, 1000),
		newRec(t, "r2", chr1, 5000, 1000),
		newRec(t, "r3", chr1, 9000, 2000),
		newRec(t, "r4", chr2, 10, 100),
	}
}

// writeIndexedBAM writes recs to dir/test.bam and builds dir/test.bam.bai.
func writeIndexedBAM(t *testing.T, dir string, recs []*sam.Record) string {
	ctx := vcontext.Background()
	path := filepath.Join(dir, "test.bam")
	out, err := file.Create(ctx, path)
	require.NoError(t, err)
	w, err := bam.NewWriter(out.Writer(ctx), header, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close(ctx))

	in, err := file.Open(ctx, path)
	require.NoError(t, err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	require.NoError(t, err)
	var idx bam.Index
	for {
		r, err := br.Read()
		if err != nil {
			break
		}
		require.NoError(t, idx.Add(r, br.LastChunk()))
	}
	require.NoError(t, br.Close())
	require.NoError(t, in.Close(ctx))

	bai, err := file.Create(ctx, path+".bai")
	require.NoError(t, err)
	require.NoError(t, bam.WriteIndex(bai.Writer(ctx), &idx))
	require.NoError(t, bai.Close(ctx))
	return path
}

func readNames(t *testing.T, p bamprovider.Provider, refName string, start, end int, mode bamprovider.Mode) []string {
	iter := bamprovider.NewRefIterator(p, refName, start, end, mode)
	names := []string{}
	for iter.Scan() {
		names = append(names, iter.Record().Name)
	}
	require.NoError(t, iter.Err())
	require.NoError(t, iter.Close())
	return names
}

func checkShards(t *testing.T, p bamprovider.Provider) {
	tests := []struct {
		ref        string
		start, end int
		mode       bamprovider.Mode
		want       []string
	}{
		{"chr1", 0, 6000, bamprovider.StartInRange, []string{"r1", "r2"}},
		{"chr1", 6000, 100000, bamprovider.StartInRange, []string{"r3"}},
		{"chr1", 10000, 10001, bamprovider.StartInRange, []string{}},
		{"chr1", 10000, 10001, bamprovider.Overlapping, []string{"r3"}},
		{"chr1", 1050, 5001, bamprovider.Overlapping, []string{"r1", "r2"}},
		{"chr1", 1100, 5000, bamprovider.Overlapping, []string{}},
		{"chr2", 0, 100, bamprovider.StartInRange, []string{"r4"}},
		{"chr2", 1000, 2000, bamprovider.Overlapping, []string{}},
	}
	// Repeat the test to exercise iterator reuse.
	for i := 0; i < 2; i++ {
		for _, tt := range tests {
			require.Equal(t, tt.want, readNames(t, p, tt.ref, tt.start, tt.end, tt.mode), "%+v", tt)
		}
	}
}

func TestBAMProvider(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeIndexedBAM(t, tmpdir, testRecords(t))

	p := bamprovider.NewProvider(path)
	h, err := p.GetHeader()
	require.NoError(t, err)
	names, lens := bamprovider.ContigLengths(h)
	require.Equal(t, []string{"chr1", "chr2"}, names)
	require.Equal(t, map[string]int{"chr1": 100000, "chr2": 50000}, lens)

	checkShards(t, p)

	iter := bamprovider.NewRefIterator(p, "chrX", 0, 10, bamprovider.StartInRange)
	require.False(t, iter.Scan())
	require.Error(t, iter.Close())
	require.NoError(t, p.Close())
}

func TestBAMProviderMissingIndex(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeIndexedBAM(t, tmpdir, testRecords(t))

	p := bamprovider.NewProvider(path, bamprovider.ProviderOpts{Index: filepath.Join(tmpdir, "missing.bai")})
	iter := bamprovider.NewRefIterator(p, "chr1", 0, 100, bamprovider.StartInRange)
	require.False(t, iter.Scan())
	require.Error(t, iter.Close())
	require.Error(t, p.Close())
}

func TestFakeProvider(t *testing.T) {
	p := bamprovider.NewFakeProvider(header, testRecords(t))
	checkShards(t, p)
	require.NoError(t, p.Close())
}

func TestFailingProvider(t *testing.T) {
	failure := errors.New("disk on fire")
	p := bamprovider.NewFailingProvider(header, testRecords(t), "chr2", failure)
	require.Equal(t, []string{"r1", "r2"}, readNames(t, p, "chr1", 0, 6000, bamprovider.StartInRange))
	iter := bamprovider.NewRefIterator(p, "chr2", 0, 100, bamprovider.StartInRange)
	require.False(t, iter.Scan())
	require.Equal(t, failure, iter.Close())
}
