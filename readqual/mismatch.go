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
package readqual

import (
	"sort"

	"github.com/KolmogorovLab/breakpoint-assembler/segment"
	"github.com/grailbio/base/errors"
)

const (
	// WindowSize is the width of a mismatch-table window.
	WindowSize = 500

	minWindowRates = 5
	windowTailFrac = 0.1
	maxWindowTail  = 15
)

// MismatchTable collects, per contig and WindowSize window, the mismatch
// rates of the alignments overlapping the window.  A contig of length L has
// L/WindowSize+2 windows.
type MismatchTable struct {
	lens    map[string]int
	windows map[string][][]float64
}

// NewMismatchTable returns an empty table for the given contigs.
func NewMismatchTable(contigLens map[string]int) *MismatchTable {
	t := &MismatchTable{
		lens:    contigLens,
		windows: make(map[string][][]float64, len(contigLens)),
	}
	for name, n := range contigLens {
		t.windows[name] = make([][]float64, n/WindowSize+2)
	}
	return t
}

// add appends rate to the windows start/WindowSize..min(end,len)/WindowSize.
func (t *MismatchTable) add(contig string, start, end int, rate float64) error {
	w, ok := t.windows[contig]
	if !ok {
		return errors.E(errors.Invalid, "readqual.MismatchTable: unknown contig", contig)
	}
	if n := t.lens[contig]; end > n {
		end = n
	}
	for i := start / WindowSize; i <= end/WindowSize; i++ {
		w[i] = append(w[i], rate)
	}
	return nil
}

// AddSummaries bins the mismatch rate of every summary.
func (t *MismatchTable) AddSummaries(sums []*segment.ReadSummary) error {
	for _, s := range sums {
		if err := t.add(s.Contig, s.RefStart, s.RefEnd, s.MismatchRate); err != nil {
			return err
		}
	}
	return nil
}

// AddSegments bins the mismatch rate of every aligned segment over its
// original reference bounds.  Insertions and clip placeholders are skipped.
func (t *MismatchTable) AddSegments(segs []*segment.Segment) error {
	for _, s := range segs {
		if s.Kind != segment.Aligned {
			continue
		}
		if err := t.add(s.Contig, s.OrigRefStart, s.OrigRefEnd, s.MismatchRate); err != nil {
			return err
		}
	}
	return nil
}

// Elevated computes the elevated-window map for the background threshold bg.
// The rates of every window are sorted in place.
func (t *MismatchTable) Elevated(bg float64) ElevatedMap {
	m := make(ElevatedMap, len(t.windows))
	for contig, windows := range t.windows {
		flags := make([]bool, len(windows))
		for i, rates := range windows {
			flags[i] = isElevated(rates, bg)
		}
		m[contig] = flags
	}
	return m
}

// isElevated reports whether a window with the given mismatch rates has an
// upper tail above the background while its bulk stays below it.  The window
// needs at least 5 rates, the 4th highest must reach bg, and the rate at
// rank max(5, min(n/10, 15)) must still be below bg.
func isElevated(rates []float64, bg float64) bool {
	n := len(rates)
	if n < minWindowRates {
		return false
	}
	sort.Float64s(rates)
	if rates[n-4] < bg {
		return false
	}
	medThr := int(float64(n) * windowTailFrac)
	if medThr > maxWindowTail {
		medThr = maxWindowTail
	}
	if medThr < minWindowRates {
		medThr = minWindowRates
	}
	if rates[medThr-1] >= bg {
		return false
	}
	for _, r := range rates {
		if r > bg {
			return true
		}
	}
	return false
}

// ElevatedMap holds the elevated flag of every mismatch window per contig.
type ElevatedMap map[string][]bool

// Overlaps reports whether any window covering [start, end] of contig is
// elevated.
func (m ElevatedMap) Overlaps(contig string, start, end int) bool {
	flags := m[contig]
	if len(flags) == 0 {
		return false
	}
	last := end / WindowSize
	if last > len(flags)-1 {
		last = len(flags) - 1
	}
	for i := start / WindowSize; i <= last; i++ {
		if flags[i] {
			return true
		}
	}
	return false
}

// Windows returns the ascending indices of the elevated windows of contig.
func (m ElevatedMap) Windows(contig string) []int {
	var idx []int
	for i, f := range m[contig] {
		if f {
			idx = append(idx, i)
		}
	}
	return idx
}

// Contigs returns the contig names in lexicographic order.
func (m ElevatedMap) Contigs() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
