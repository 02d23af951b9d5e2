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
// Package spanning counts, per haplotype, the reads whose alignment spans
// each of a set of breakpoint positions.
package spanning

import (
	"context"
	"sort"

	"github.com/KolmogorovLab/breakpoint-assembler/encoding/bamprovider"
	"github.com/KolmogorovLab/breakpoint-assembler/encoding/tsvfile"
	"github.com/KolmogorovLab/breakpoint-assembler/interval"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
)

// fetchPad is added on both sides of a group of positions when fetching
// reads.
const fetchPad = 3

// Opts controls Count.
type Opts struct {
	// MinMapQ is exclusive: a read needs MapQ > MinMapQ.
	MinMapQ int
	// MaxGap is the largest distance between consecutive positions fetched
	// with one iterator.
	MaxGap int
	// Parallelism is the number of concurrent workers.
	Parallelism int
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	MinMapQ:     10,
	MaxGap:      interval.DefaultChunkSize,
	Parallelism: 1,
}

// Point is a queried reference position.
type Point struct {
	Contig string
	Pos    int
}

// Counts maps each queried position to its number of spanning reads per
// haplotype lane (0 = unphased, 1, 2).
type Counts map[Point][3]int

type job struct {
	contig    string
	positions []int
}

// Count counts the spanning reads of every position of points.  A read spans
// a position if it is primary or supplementary, mapped, has MapQ above
// opts.MinMapQ, starts before the position and ends after it.  Every queried
// position is present in the result.  A job whose iterator fails is logged
// and contributes no counts.
func Count(p bamprovider.Provider, points interval.Points, opts Opts) (Counts, error) {
	header, err := p.GetHeader()
	if err != nil {
		return nil, err
	}
	var jobs []job
	for _, contig := range points.Contigs() {
		for _, g := range points.Groups(contig, opts.MaxGap) {
			jobs = append(jobs, job{contig, g})
		}
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > len(jobs) {
		parallelism = len(jobs)
	}
	results := make([]Counts, len(jobs))
	if parallelism == 0 {
		return Counts{}, nil
	}
	err = traverse.Each(parallelism, func(workerIdx int) error {
		startIdx := (workerIdx * len(jobs)) / parallelism
		endIdx := ((workerIdx + 1) * len(jobs)) / parallelism
		for j := startIdx; j < endIdx; j++ {
			c, err := countJob(p, header, jobs[j], opts.MinMapQ)
			if err != nil {
				log.Error.Printf("spanning.Count: %s:%d-%d: %v", jobs[j].contig,
					jobs[j].positions[0], jobs[j].positions[len(jobs[j].positions)-1], err)
				continue
			}
			results[j] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts := Counts{}
	for _, contig := range points.Contigs() {
		for _, pos := range points[contig] {
			counts[Point{contig, pos}] = [3]int{}
		}
	}
	for _, c := range results {
		counts.Merge(c)
	}
	return counts, nil
}

// Merge adds the counts of o to c.
func (c Counts) Merge(o Counts) {
	for pt, v := range o {
		sum := c[pt]
		for hp := range sum {
			sum[hp] += v[hp]
		}
		c[pt] = sum
	}
}

func countJob(p bamprovider.Provider, header *sam.Header, j job, minMapQ int) (Counts, error) {
	counts := Counts{}
	ref := bamprovider.RefByName(header, j.contig)
	if ref == nil {
		// No reads can span positions on a contig absent from the BAM.
		return counts, nil
	}
	start := j.positions[0] - fetchPad
	if start < 0 {
		start = 0
	}
	end := j.positions[len(j.positions)-1] + fetchPad
	iter := p.NewIterator(bamprovider.Shard{Ref: ref, Start: start, End: end, Mode: bamprovider.Overlapping})
	for iter.Scan() {
		r := iter.Record()
		if r.Flags&(sam.Secondary|sam.Unmapped) == 0 && int(r.MapQ) > minMapQ {
			first := sort.Search(len(j.positions), func(i int) bool { return j.positions[i] > r.Pos })
			last := sort.SearchInts(j.positions, r.End())
			if first < last {
				hp := segment.Haplotype(r)
				for _, pos := range j.positions[first:last] {
					pt := Point{j.contig, pos}
					v := counts[pt]
					v[hp]++
					counts[pt] = v
				}
			}
		}
		sam.PutInFreePool(r)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Write writes the counts of every sample at every position of points as
// "contig position sample H0 H1 H2" lines, ordered by contig, position and
// the order of samples.
func Write(ctx context.Context, path string, points interval.Points, samples []string, counts map[string]Counts) (err error) {
	w, err := tsvfile.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w.WriteString("#contig\tposition\tsample\tH0\tH1\tH2")
	w.EndLine()
	for _, contig := range points.Contigs() {
		for _, pos := range points[contig] {
			for _, sample := range samples {
				v := counts[sample][Point{contig, pos}]
				w.WriteString(contig)
				w.WriteInt(pos)
				w.WriteString(sample)
				for _, n := range v {
					w.WriteInt(n)
				}
				w.EndLine()
			}
		}
	}
	return nil
}
