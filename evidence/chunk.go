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
	"github.com/KolmogorovLab/breakpoint-assembler/encoding/bamprovider"
	"github.com/KolmogorovLab/breakpoint-assembler/interval"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// ChunkResult is the output of one genomic chunk of one sample.
type ChunkResult struct {
	Chunk interval.Chunk
	// Segments holds the segments of the split or indel-bearing alignments,
	// plus the clip placeholders of simple alignments.
	Segments []*segment.Segment
	// Summaries holds one entry per simple alignment.
	Summaries []*segment.ReadSummary
	// Skipped counts the malformed records that were left out.
	Skipped int
}

// processChunk segments the alignments of sample that start in c.
// Secondary and unmapped records are ignored.  A malformed record is logged
// and skipped; an iterator error fails the whole chunk.
func processChunk(p bamprovider.Provider, sample string, c interval.Chunk, opts segment.ExtractOpts) (*ChunkResult, error) {
	res := &ChunkResult{Chunk: c}
	iter := bamprovider.NewRefIterator(p, c.Contig, c.Start, c.End, bamprovider.StartInRange)
	for iter.Scan() {
		r := iter.Record()
		if r.Flags&(sam.Secondary|sam.Unmapped) != 0 {
			continue
		}
		segs, sum, err := segment.Extract(r, sample, opts)
		if err != nil {
			log.Error.Printf("evidence: %s %s: skipping record: %v", sample, c, err)
			res.Skipped++
			continue
		}
		res.Segments = append(res.Segments, segs...)
		if sum != nil {
			res.Summaries = append(res.Summaries, sum)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errors.E(err, "evidence: chunk", sample, c.String())
	}
	log.Debug.Printf("evidence: %s %s: %d segments, %d summaries, %d skipped",
		sample, c, len(res.Segments), len(res.Summaries), res.Skipped)
	return res, nil
}
