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

import "fmt"

// DefaultChunkSize is the default length of the contig chunks processed by
// one worker.
const DefaultChunkSize = 10000000

// Chunk is one unit of work: the half-open reference range [Start, End) of a
// contig.
type Chunk struct {
	Contig     string
	Start, End int
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s:%d-%d", c.Contig, c.Start, c.End)
}

// ChunkContig splits a contig of the given length into max(length/size, 1)
// chunks of size bases.  The last chunk is extended to the end of the contig,
// so it may be up to 2*size-1 bases long.
func ChunkContig(contig string, length, size int) []Chunk {
	n := length / size
	if n < 1 {
		n = 1
	}
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		c := Chunk{Contig: contig, Start: i * size, End: (i + 1) * size}
		if length-c.End < size {
			c.End = length
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// ChunkGenome chunks every named contig in order.  If region is non-nil, only
// the parts of the chunks inside the region are kept.
func ChunkGenome(names []string, lengths map[string]int, size int, region *Entry) []Chunk {
	var chunks []Chunk
	for _, name := range names {
		for _, c := range ChunkContig(name, lengths[name], size) {
			if region != nil {
				var ok bool
				if c.Start, c.End, ok = region.Clip(c.Contig, c.Start, c.End); !ok {
					continue
				}
			}
			chunks = append(chunks, c)
		}
	}
	return chunks
}
