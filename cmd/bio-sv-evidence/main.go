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
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KolmogorovLab/breakpoint-assembler/encoding/bamprovider"
	"github.com/KolmogorovLab/breakpoint-assembler/evidence"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/profile"
)

var (
	sampleIDs        = flag.String("sample-ids", "", "Comma-separated sample IDs, one per BAM. Defaults to the BAM basenames without extension")
	svSize           = flag.Int("sv-size", evidence.DefaultOpts.SVSize, "Minimum indel length that splits an alignment")
	useSuppTag       = flag.Bool("use-supplementary-tag", evidence.DefaultOpts.UseSupplementaryTag, "Trust the HP tag of supplementary alignments")
	minMapQ          = flag.Int("min-mapq", evidence.DefaultOpts.MinMapQ, "Segments with MAPQ below this level are labeled LOW_MAPQ")
	minAlignedLength = flag.Int("min-aligned-length", evidence.DefaultOpts.MinAlignedLength, "Upper bound on the read-length filter of the baseline coverage")
	chunkSize        = flag.Int("chunk-size", evidence.DefaultOpts.ChunkSize, "Length of the genomic chunks processed in parallel")
	parallelism      = flag.Int("parallelism", 0, "Maximum number of simultaneous chunk jobs; 0 = runtime.NumCPU()")
	region           = flag.String("region", "", "Restrict processing to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	control          = flag.String("control", "", "Control sample ID for LOH detection")
	targets          = flag.String("targets", "", "Comma-separated target sample IDs for LOH detection")
	readQualPath     = flag.String("readqual", "", "Output path of the per-label segment summary")
	lohPath          = flag.String("loh", "", "Output path of the LOH regions; requires -control and -targets")
	segdupsPath      = flag.String("segdups", "", "Output path of the elevated-mismatch regions")
	breakpointsPath  = flag.String("breakpoints", "", "Input path of \"contig position\" lines whose spanning reads are counted")
	spanningPath     = flag.String("spanning", "", "Output path of the spanning-read counts; requires -breakpoints")
	cpuProfileDir    = flag.String("cpuprofile-dir", "", "If nonempty, write a CPU profile to this directory")
)

func bioSVEvidenceUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath...\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// defaultSampleID returns the basename of path without its extension.
func defaultSampleID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func main() {
	flag.Usage = bioSVEvidenceUsage
	shutdown := grail.Init()
	defer shutdown()

	bamPaths := flag.Args()
	if len(bamPaths) == 0 {
		log.Fatalf("Missing positional arguments (at least one bampath required)")
	}
	ids := splitList(*sampleIDs)
	if ids == nil {
		for _, path := range bamPaths {
			ids = append(ids, defaultSampleID(path))
		}
	}
	if len(ids) != len(bamPaths) {
		log.Fatalf("-sample-ids has %d entries, but %d BAMs were given", len(ids), len(bamPaths))
	}
	if *cpuProfileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfileDir), profile.NoShutdownHook).Stop()
	}

	ctx := vcontext.Background()
	opts := evidence.Opts{
		SVSize:              *svSize,
		UseSupplementaryTag: *useSuppTag,
		MinMapQ:             *minMapQ,
		MinAlignedLength:    *minAlignedLength,
		ChunkSize:           *chunkSize,
		Parallelism:         *parallelism,
		ControlSample:       *control,
		TargetSamples:       splitList(*targets),
		Region:              *region,
		ReadQualPath:        *readQualPath,
		LOHPath:             *lohPath,
		SegdupsPath:         *segdupsPath,
		BreakpointsPath:     *breakpointsPath,
		SpanningPath:        *spanningPath,
	}
	samples := make([]evidence.Sample, len(bamPaths))
	for i, path := range bamPaths {
		samples[i] = evidence.Sample{ID: ids[i], Provider: bamprovider.NewProvider(path)}
	}
	_, err := evidence.Run(ctx, samples, opts)
	for _, s := range samples {
		if cerr := s.Provider.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
