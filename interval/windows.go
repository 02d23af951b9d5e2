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
package interval

// Run is a half-open interval [Start, End) built from consecutive flagged
// windows.
type Run struct {
	Start, End int
}

// Len returns End - Start.
func (r Run) Len() int { return r.End - r.Start }

// MergeWindows converts ascending window indices into runs.  Window i covers
// [i*width, (i+1)*width).  A window whose start is at most maxGap bases after
// the end of the current run extends the run; otherwise it starts a new run.
// maxGap == 0 merges only directly adjacent windows.
func MergeWindows(indices []int, width, maxGap int) []Run {
	var runs []Run
	for _, idx := range indices {
		start, end := idx*width, (idx+1)*width
		if n := len(runs); n > 0 && start-runs[n-1].End <= maxGap {
			runs[n-1].End = end
			continue
		}
		runs = append(runs, Run{Start: start, End: end})
	}
	return runs
}

// FilterRuns returns the runs at least minLen long.  runs is modified in
// place.
func FilterRuns(runs []Run, minLen int) []Run {
	kept := runs[:0]
	for _, r := range runs {
		if r.Len() >= minLen {
			kept = append(kept, r)
		}
	}
	return kept
}
