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

/*Package readqual implements the background mismatch model and the segment
  quality labeler.

  The background threshold is a high quantile of the mismatch rates of all
  alignments, each weighted by its reference span.  Mismatch rates are also
  binned into fixed 500-base windows per contig; windows where a minority of
  alignments have a mismatch rate above the background are flagged as
  elevated (typically collapsed segmental duplications).  LabelRead then tags
  every segment of a read with the reasons it cannot be trusted, or PASS.
*/
package readqual
