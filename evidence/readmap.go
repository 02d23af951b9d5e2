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
package evidence

import (
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/unsafe"
)

const numReadMapShards = 1024

type readShard struct {
	mu    sync.Mutex
	reads map[string][]*segment.Segment
}

// readMap is a sharded, thread-safe map from read name to the segments of
// the read.  Chunk workers add to it concurrently; a read whose alignments
// start in different chunks is gathered here.
type readMap struct {
	shards [numReadMapShards]readShard
}

func newReadMap() *readMap {
	m := &readMap{}
	for i := 0; i < len(m.shards); i++ {
		m.shards[i].reads = make(map[string][]*segment.Segment)
	}
	return m
}

func (m *readMap) shard(readID string) *readShard {
	h := seahash.Sum64(unsafe.StringToBytes(readID))
	return &m.shards[int(h%uint64(numReadMapShards))]
}

// add appends segs to the lists of their reads.
func (m *readMap) add(segs []*segment.Segment) {
	for _, s := range segs {
		shard := m.shard(s.ReadID)
		shard.mu.Lock()
		shard.reads[s.ReadID] = append(shard.reads[s.ReadID], s)
		shard.mu.Unlock()
	}
}

// approxSize returns the approximate number of reads in the map.  It returns
// a correct number iff it is invoked when no other thread is accessing the map.
func (m *readMap) approxSize() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.reads)
		s.mu.Unlock()
	}
	return n
}

// sortedReads returns the reads ordered by name.  The segments of each read
// are ordered by read start, reference start and kind.  It must not be called
// concurrently with add.
func (m *readMap) sortedReads() [][]*segment.Segment {
	reads := make([][]*segment.Segment, 0, m.approxSize())
	for i := range m.shards {
		for _, read := range m.shards[i].reads {
			sort.SliceStable(read, func(a, b int) bool {
				if read[a].ReadStart != read[b].ReadStart {
					return read[a].ReadStart < read[b].ReadStart
				}
				if read[a].RefStart != read[b].RefStart {
					return read[a].RefStart < read[b].RefStart
				}
				return read[a].Kind < read[b].Kind
			})
			reads = append(reads, read)
		}
	}
	sort.Slice(reads, func(i, j int) bool { return reads[i][0].ReadID < reads[j][0].ReadID })
	return reads
}
