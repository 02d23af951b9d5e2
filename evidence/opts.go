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
	"github.com/KolmogorovLab/breakpoint-assembler/interval"
	"github.com/grailbio/base/errors"
)

// Opts controls the evidence pipeline.
type Opts struct {
	// SVSize is the minimum indel length that splits an alignment.
	SVSize int
	// UseSupplementaryTag makes supplementary alignments keep their HP tag.
	// Otherwise they are unphased.
	UseSupplementaryTag bool
	// MinMapQ is the mapping quality below which segments are labeled
	// LowMapQ.  Baseline coverage and spanning counts require MapQ above it.
	MinMapQ int
	// MinAlignedLength caps the read-length filter of the baseline coverage.
	MinAlignedLength int
	// ChunkSize is the length of the genomic chunks processed in parallel.
	ChunkSize int
	// Parallelism is the number of concurrent chunk workers.  If <= 0,
	// runtime.NumCPU() is used.
	Parallelism int

	// ControlSample and TargetSamples select the samples compared for loss
	// of heterozygosity.  Both must be set for LOHPath to be written.
	ControlSample string
	TargetSamples []string
	// Region optionally restricts processing to "contig[:start-end]".
	Region string

	// ReadQualPath, if nonempty, receives the per-label segment counts.
	ReadQualPath string
	// LOHPath, if nonempty, receives the loss-of-heterozygosity regions.
	LOHPath string
	// SegdupsPath, if nonempty, receives the elevated-mismatch regions.
	SegdupsPath string
	// BreakpointsPath, if nonempty, lists "contig position" query points
	// whose spanning reads are counted into SpanningPath.
	BreakpointsPath string
	SpanningPath    string
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	SVSize:           50,
	MinMapQ:          10,
	MinAlignedLength: 7000,
	ChunkSize:        interval.DefaultChunkSize,
}

func (o *Opts) validate() error {
	if o.SVSize <= 0 {
		return errors.E(errors.Invalid, "evidence: SVSize must be positive")
	}
	if o.ChunkSize <= 0 {
		return errors.E(errors.Invalid, "evidence: ChunkSize must be positive")
	}
	if o.MinMapQ < 0 {
		return errors.E(errors.Invalid, "evidence: MinMapQ must not be negative")
	}
	if o.LOHPath != "" && (o.ControlSample == "" || len(o.TargetSamples) == 0) {
		return errors.E(errors.Invalid, "evidence: LOH output requires control and target samples")
	}
	if (o.BreakpointsPath == "") != (o.SpanningPath == "") {
		return errors.E(errors.Invalid, "evidence: breakpoints and spanning paths must be set together")
	}
	return nil
}

// outputPaths returns the report paths that are set.
func (o *Opts) outputPaths() []string {
	var paths []string
	for _, p := range []string{o.ReadQualPath, o.LOHPath, o.SegdupsPath, o.SpanningPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
