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

/*Package segment turns alignment records into read segments: the
  contiguous reference-aligned blocks, large insertions and clip
  placeholders that structural-variant breakpoint detection works on.

  Extract walks one record's CIGAR, Merge coalesces fragmentation
  artifacts within one record, and AddClippedEnds marks unaligned read
  ends once the segments of a read have been labeled.
*/
package segment
