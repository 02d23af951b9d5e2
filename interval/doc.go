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

/*Package interval holds the genomic-coordinate helpers of the evidence
  pipeline: region strings, the split of contigs into work chunks, sorted
  per-contig query points, and the merging of flagged fixed-width windows
  into runs.
  Coordinates are 0-based and intervals are half-open unless noted.
*/
package interval
