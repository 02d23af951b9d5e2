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
package interval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region  string
		chrName string
		start0  PosType
		end     PosType
	}{
		{"chr1:1-1000", "chr1", 0, 1000},
		{"chr1:1,001-2,000", "chr1", 1000, 2000},
		{"chr1:1000", "chr1", 999, 1000},
		{"chr1", "chr1", 0, PosTypeMax - 1},
		{"HLA-A*01:01:01:01:1-10", "HLA-A*01:01:01:01", 0, 10},
	}
	for _, tt := range tests {
		result, err := ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result.ChrName, tt.chrName)
		expect.EQ(t, result.Start0, tt.start0)
		expect.EQ(t, result.End, tt.end)
	}
	for _, bad := range []string{"", ":1-10", "chr1:0-10", "chr1:20-10", "chr1:x-10", "chr1:-5"} {
		_, err := ParseRegionString(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestEntryClip(t *testing.T) {
	e := Entry{ChrName: "chr1", Start0: 100, End: 200}
	start, end, ok := e.Clip("chr1", 0, 150)
	expect.True(t, ok)
	expect.EQ(t, start, 100)
	expect.EQ(t, end, 150)
	_, _, ok = e.Clip("chr1", 200, 300)
	expect.False(t, ok)
	_, _, ok = e.Clip("chr2", 0, 300)
	expect.False(t, ok)
	expect.EQ(t, e.String(), "chr1:101-200")
}

func TestChunkContig(t *testing.T) {
	tests := []struct {
		length int
		want   []Chunk
	}{
		{5, []Chunk{{"c", 0, 5}}},
		{20, []Chunk{{"c", 0, 10}, {"c", 10, 20}}},
		{25, []Chunk{{"c", 0, 10}, {"c", 10, 25}}},
		{39, []Chunk{{"c", 0, 10}, {"c", 10, 20}, {"c", 20, 39}}},
		{0, []Chunk{{"c", 0, 0}}},
	}
	for _, tt := range tests {
		expect.EQ(t, ChunkContig("c", tt.length, 10), tt.want)
	}
}

func TestChunkGenome(t *testing.T) {
	names := []string{"chr1", "chr2"}
	lengths := map[string]int{"chr1": 30, "chr2": 12}
	expect.EQ(t, ChunkGenome(names, lengths, 10, nil), []Chunk{
		{"chr1", 0, 10}, {"chr1", 10, 20}, {"chr1", 20, 30}, {"chr2", 0, 12},
	})
	region := Entry{ChrName: "chr1", Start0: 15, End: 25}
	expect.EQ(t, ChunkGenome(names, lengths, 10, &region), []Chunk{
		{"chr1", 15, 20}, {"chr1", 20, 25},
	})
}

func TestMergeWindows(t *testing.T) {
	// [10000,10500) and [12000,12500) are 1500 apart; [20000,20500) is 7500
	// past the merged run.
	runs := MergeWindows([]int{20, 24, 40}, 500, 2000)
	expect.EQ(t, runs, []Run{{10000, 12500}, {20000, 20500}})

	runs = MergeWindows([]int{0, 1, 3}, 500, 0)
	expect.EQ(t, runs, []Run{{0, 1000}, {1500, 2000}})

	expect.EQ(t, len(MergeWindows(nil, 500, 0)), 0)
}

func TestFilterRuns(t *testing.T) {
	runs := []Run{{0, 10000}, {20000, 29999}, {40000, 60000}}
	expect.EQ(t, FilterRuns(runs, 10000), []Run{{0, 10000}, {40000, 60000}})
}

func TestPoints(t *testing.T) {
	p, err := NewPoints(strings.NewReader("#contig\tpos\nchr2\t500\nchr1\t30\n\nchr1\t10\textra\nchr1\t30\n"))
	expect.NoError(t, err)
	expect.EQ(t, p.Contigs(), []string{"chr1", "chr2"})
	expect.EQ(t, p["chr1"], []int{10, 30})
	expect.EQ(t, p["chr2"], []int{500})

	_, err = NewPoints(strings.NewReader("chr1\n"))
	expect.NotNil(t, err)
	_, err = NewPoints(strings.NewReader("chr1 abc\n"))
	expect.NotNil(t, err)
}

func TestPointsGroups(t *testing.T) {
	p := Points{}
	for _, pos := range []int{100, 5, 150, 1000, 1100, 5000} {
		p.Add("chr1", pos)
	}
	p.Finalize()
	expect.EQ(t, p.Groups("chr1", 100), [][]int{{5, 100, 150}, {1000, 1100}, {5000}})
	expect.EQ(t, p.Groups("chr1", 10000), [][]int{{5, 100, 150, 1000, 1100, 5000}})
	expect.EQ(t, len(p.Groups("chrX", 100)), 0)
}

func TestNewPointsFromPathGzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "points.tsv.gz")
	f, err := os.Create(path)
	expect.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte("chr1\t42\n"))
	expect.NoError(t, err)
	expect.NoError(t, w.Close())
	expect.NoError(t, f.Close())

	p, err := NewPointsFromPath(path)
	expect.NoError(t, err)
	expect.EQ(t, p["chr1"], []int{42})
}
