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
Package evidence runs the structural-variant evidence pipeline over the
alignments of one or more samples.

For each sample, the genome is split into fixed-size chunks which are read in
parallel.  Every primary or supplementary alignment is segmented (see package
segment); reads without a split or a large indel only contribute a compact
summary.  Once all chunks of a sample are done, the sample's read statistics,
background mismatch rate and baseline coverage are computed.

After all samples, a global background mismatch rate and the map of windows
with an elevated mismatch tail are derived.  Every read is then labeled,
clip placeholders are synthesized, segment coverage is accumulated, and the
optional reports (read quality, segmental duplications, loss of
heterozygosity, breakpoint-spanning reads) are written.
*/
package evidence
