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
	"context"
	"math"
	"runtime"

	"github.com/KolmogorovLab/breakpoint-assembler/coverage"
	"github.com/KolmogorovLab/breakpoint-assembler/encoding/bamprovider"
	"github.com/KolmogorovLab/breakpoint-assembler/encoding/tsvfile"
	"github.com/KolmogorovLab/breakpoint-assembler/interval"
	"github.com/KolmogorovLab/breakpoint-assembler/readqual"
	"github.com/KolmogorovLab/breakpoint-assembler/readstats"
	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/KolmogorovLab/breakpoint-assembler/spanning"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Sample is one input alignment set.
type Sample struct {
	// ID names the sample in segments, histograms and reports.
	ID       string
	Provider bamprovider.Provider
}

// SampleResult holds the per-sample output of Run.
type SampleResult struct {
	ID string
	// Summaries holds the simple alignments.
	Summaries []*segment.ReadSummary
	// Reads holds the labeled segments of every segmented read, ordered by
	// read name.  Each read is ordered by read start.
	Reads [][]*segment.Segment
	// Stats is valid iff HasStats.
	Stats    readstats.Stats
	HasStats bool
	// Background is the mismatch threshold of this sample alone; it filters
	// the baseline coverage.
	Background float64
	// MinReadLen is the read-length filter of the baseline coverage.
	MinReadLen int
	// Skipped counts malformed records, FailedChunks the discarded chunks.
	Skipped      int
	FailedChunks int
}

// Result is the output of Run.
type Result struct {
	Contigs    []string
	ContigLens map[string]int
	Samples    []*SampleResult
	// Background is the mismatch threshold over all samples.  It is +Inf if
	// no alignment was seen.
	Background float64
	Elevated   readqual.ElevatedMap
	Coverage   *coverage.Table
	Labels     []readqual.QualCount
	Segdups    []coverage.Region
	LOH        []coverage.LOHRegion
	// Spanning maps a sample ID to its counts.  It is nil unless
	// opts.BreakpointsPath is set.
	Spanning map[string]spanning.Counts
}

type run struct {
	opts     Opts
	samples  []Sample
	contigs  []string
	lens     map[string]int
	region   *interval.Entry
	points   interval.Points
	mismatch *readqual.MismatchTable
	cov      *coverage.Table
	weights  *readqual.WeightedRates
}

// Run executes the pipeline over samples.  Configuration errors (bad
// options, unknown samples or contigs, unwritable reports) are returned
// before any alignment is read.  Malformed records and failing chunks are
// logged and left out.
func Run(ctx context.Context, samples []Sample, opts Opts) (*Result, error) {
	r, err := newRun(ctx, samples, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Contigs: r.contigs, ContigLens: r.lens, Coverage: r.cov}
	for _, s := range samples {
		sr, err := r.processSample(s)
		if err != nil {
			return nil, err
		}
		res.Samples = append(res.Samples, sr)
	}
	if err := r.finish(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func newRun(ctx context.Context, samples []Sample, opts Opts) (*run, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	if len(samples) == 0 {
		return nil, errors.E(errors.Invalid, "evidence: no samples")
	}
	r := &run{opts: opts, samples: samples, lens: map[string]int{}, weights: readqual.NewWeightedRates()}
	ids := make([]string, 0, len(samples))
	seen := map[string]bool{}
	for _, s := range samples {
		if s.ID == "" {
			return nil, errors.E(errors.Invalid, "evidence: empty sample ID")
		}
		if seen[s.ID] {
			return nil, errors.E(errors.Invalid, "evidence: duplicate sample ID", s.ID)
		}
		seen[s.ID] = true
		ids = append(ids, s.ID)
		header, err := s.Provider.GetHeader()
		if err != nil {
			return nil, errors.E(err, "evidence: header of", s.ID)
		}
		names, lens := bamprovider.ContigLengths(header)
		for _, name := range names {
			if l, ok := r.lens[name]; ok {
				if l != lens[name] {
					return nil, errors.E(errors.Invalid, "evidence: conflicting lengths for contig", name)
				}
				continue
			}
			r.contigs = append(r.contigs, name)
			r.lens[name] = lens[name]
		}
	}
	if opts.Region != "" {
		region, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
		if _, ok := r.lens[region.ChrName]; !ok {
			return nil, errors.E(errors.Invalid, "evidence: unknown contig in region", opts.Region)
		}
		r.region = &region
	}
	var err error
	if r.cov, err = coverage.NewTable(ids, r.contigs, r.lens); err != nil {
		return nil, err
	}
	if opts.ControlSample != "" || len(opts.TargetSamples) > 0 {
		if err := r.cov.CheckSamples(opts.ControlSample, opts.TargetSamples); err != nil {
			return nil, err
		}
	}
	r.mismatch = readqual.NewMismatchTable(r.lens)
	if opts.BreakpointsPath != "" {
		if r.points, err = interval.NewPointsFromPath(opts.BreakpointsPath); err != nil {
			return nil, errors.E(err, "evidence: breakpoints", opts.BreakpointsPath)
		}
	}
	for _, path := range opts.outputPaths() {
		w, err := tsvfile.Create(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// processSample reads all chunks of s and accumulates the sample's summaries
// into the shared mismatch and coverage tables.  It returns after every chunk
// is done.
func (r *run) processSample(s Sample) (*SampleResult, error) {
	header, err := s.Provider.GetHeader()
	if err != nil {
		return nil, errors.E(err, "evidence: header of", s.ID)
	}
	names, _ := bamprovider.ContigLengths(header)
	chunks := interval.ChunkGenome(names, r.lens, r.opts.ChunkSize, r.region)
	log.Printf("evidence: %s: processing %d chunks", s.ID, len(chunks))

	reads := newReadMap()
	results := make([]*ChunkResult, len(chunks))
	extractOpts := segment.ExtractOpts{SVSize: r.opts.SVSize, UseSupplementaryTag: r.opts.UseSupplementaryTag}
	parallelism := r.opts.Parallelism
	if parallelism > len(chunks) {
		parallelism = len(chunks)
	}
	if parallelism > 0 {
		err = traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(chunks)) / parallelism
			endIdx := ((jobIdx + 1) * len(chunks)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				res, err := processChunk(s.Provider, s.ID, chunks[i], extractOpts)
				if err != nil {
					log.Error.Printf("evidence: discarding chunk: %v", err)
					continue
				}
				reads.add(res.Segments)
				results[i] = res
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sr := &SampleResult{ID: s.ID}
	bg := readqual.NewWeightedRates()
	for _, res := range results {
		if res == nil {
			sr.FailedChunks++
			continue
		}
		sr.Summaries = append(sr.Summaries, res.Summaries...)
		sr.Skipped += res.Skipped
		bg.AddSegments(res.Segments)
	}
	bg.AddSummaries(sr.Summaries)
	sr.Reads = reads.sortedReads()
	log.Printf("evidence: %s: %d simple alignments, %d segmented reads, %d skipped records, %d failed chunks",
		s.ID, len(sr.Summaries), len(sr.Reads), sr.Skipped, sr.FailedChunks)

	var ok bool
	if sr.Background, ok = bg.Threshold(); !ok {
		sr.Background = math.Inf(1)
	}
	if sr.Stats, sr.HasStats = readstats.Compute(sr.Summaries, sr.Reads); sr.HasStats {
		sr.Stats.Log(s.ID)
	} else {
		log.Printf("evidence: %s: no alignments", s.ID)
	}
	sr.MinReadLen = sr.Stats.LengthFilter(sr.HasStats, r.opts.MinAlignedLength)

	if err := r.mismatch.AddSummaries(sr.Summaries); err != nil {
		return nil, err
	}
	filter := coverage.SummaryFilter{MinMapQ: r.opts.MinMapQ, Background: sr.Background, MinReadLen: sr.MinReadLen}
	if err := r.cov.AddSummaries(s.ID, sr.Summaries, filter); err != nil {
		return nil, err
	}
	r.weights.Merge(bg)
	return sr, nil
}

// finish runs the steps that need every sample: background model, labeling,
// clip placeholders, segment coverage and the reports.
func (r *run) finish(ctx context.Context, res *Result) error {
	var ok bool
	if res.Background, ok = r.weights.Threshold(); !ok {
		res.Background = math.Inf(1)
	}
	log.Printf("evidence: background mismatch rate %.4f", res.Background)

	var all [][]*segment.Segment
	for _, sr := range res.Samples {
		all = append(all, sr.Reads...)
	}
	for _, read := range all {
		if err := r.mismatch.AddSegments(read); err != nil {
			return err
		}
	}
	res.Elevated = r.mismatch.Elevated(res.Background)
	res.Segdups = coverage.ExtractSegdups(res.Elevated, r.contigs)
	if r.opts.SegdupsPath != "" {
		if err := coverage.WriteSegdups(ctx, r.opts.SegdupsPath, res.Segdups); err != nil {
			return err
		}
	}

	for _, read := range all {
		readqual.LabelRead(read, r.opts.MinMapQ, res.Background, res.Elevated)
	}
	res.Labels = readqual.CountLabels(all)
	if r.opts.ReadQualPath != "" {
		if err := readqual.WriteReport(ctx, r.opts.ReadQualPath, all); err != nil {
			return err
		}
	}
	for _, sr := range res.Samples {
		for i, read := range sr.Reads {
			sr.Reads[i] = segment.AddClippedEnds(read)
		}
		if err := r.cov.AddSegments(sr.Reads); err != nil {
			return err
		}
	}
	r.cov.LogMedianCoverage()

	if r.opts.ControlSample != "" && len(r.opts.TargetSamples) > 0 {
		var err error
		if res.LOH, err = r.cov.ExtractLOH(r.opts.ControlSample, r.opts.TargetSamples); err != nil {
			return err
		}
		if r.opts.LOHPath != "" {
			if err := coverage.WriteLOH(ctx, r.opts.LOHPath, res.LOH); err != nil {
				return err
			}
		}
	}

	if r.points != nil {
		res.Spanning = make(map[string]spanning.Counts, len(r.samples))
		ids := make([]string, len(r.samples))
		spanOpts := spanning.Opts{MinMapQ: r.opts.MinMapQ, MaxGap: r.opts.ChunkSize, Parallelism: r.opts.Parallelism}
		for i, s := range r.samples {
			counts, err := spanning.Count(s.Provider, r.points, spanOpts)
			if err != nil {
				return errors.E(err, "evidence: spanning reads of", s.ID)
			}
			res.Spanning[s.ID] = counts
			ids[i] = s.ID
		}
		if err := spanning.Write(ctx, r.opts.SpanningPath, r.points, ids, res.Spanning); err != nil {
			return err
		}
	}
	return nil
}
