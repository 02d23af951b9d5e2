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

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Points holds query positions per contig.  After Finalize, every list is
// sorted and free of duplicates.
type Points map[string][]int

// Add records a query position.
func (p Points) Add(contig string, pos int) {
	p[contig] = append(p[contig], pos)
}

// Finalize sorts and de-duplicates every contig's positions.
func (p Points) Finalize() {
	for contig, lst := range p {
		sort.Ints(lst)
		kept := lst[:0]
		for i, v := range lst {
			if i == 0 || v != lst[i-1] {
				kept = append(kept, v)
			}
		}
		p[contig] = kept
	}
}

// Contigs returns the contig names in lexicographic order.
func (p Points) Contigs() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups splits the finalized positions of contig into runs in which
// consecutive positions are at most maxGap apart.
func (p Points) Groups(contig string, maxGap int) [][]int {
	lst := p[contig]
	var groups [][]int
	start := 0
	for i := 1; i <= len(lst); i++ {
		if i == len(lst) || lst[i]-lst[i-1] > maxGap {
			groups = append(groups, lst[start:i])
			start = i
		}
	}
	return groups
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewPoints reads "contig position" lines (0-based positions, any further
// columns ignored).  Empty lines and lines starting with '#' are skipped.
// The result is finalized.
func NewPoints(reader io.Reader) (Points, error) {
	p := Points{}
	scanner := bufio.NewScanner(reader)
	var tokens [2][]byte
	lineIdx := 0
	n := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) > 0 && curLine[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 {
			continue
		}
		if nToken != 2 {
			return nil, fmt.Errorf("interval.NewPoints: line %d has fewer tokens than expected", lineIdx)
		}
		pos, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("interval.NewPoints: line %d: %v", lineIdx, err)
		}
		if pos < 0 {
			return nil, fmt.Errorf("interval.NewPoints: line %d: negative position %d", lineIdx, pos)
		}
		p.Add(string(tokens[0]), pos)
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.Finalize()
	log.Printf("Points loaded, %d position(s) on %d contig(s).", n, len(p))
	return p, nil
}

// NewPointsFromPath is a wrapper for NewPoints that takes a path instead of
// an io.Reader.  Gzipped input is detected from the path.
func NewPointsFromPath(path string) (p Points, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewPoints(reader)
}
