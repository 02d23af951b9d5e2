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

/*
bio-sv-evidence collects structural-variant evidence from the long-read
alignments of one or more samples.  Every alignment is cut into segments at
large deletions, insertions and split points; segments are labeled PASS or
with their failure reasons using a genome-wide background mismatch model, and
haplotype-resolved coverage histograms are built per sample.

Optional outputs are a per-label segment summary (-readqual), regions of
elevated mismatch rate suggestive of segmental duplications (-segdups),
loss-of-heterozygosity regions of target samples against a control sample
(-loh), and per-haplotype counts of reads spanning a list of breakpoints
(-breakpoints and -spanning).  Outputs whose path ends in ".gz" are
bgzip-compressed.

Sample usage:
bio-sv-evidence \
    -sample-ids normal,tumor \
    -control normal -targets tumor \
    -readqual read_qual.txt \
    -loh loh.bed \
    -segdups segdups.bed \
    normal.bam tumor.bam
*/
package main
