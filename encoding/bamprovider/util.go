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
package bamprovider

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// NewRefIterator creates an iterator for half-open range [refName:start,
// refName:limit). Start and limit are both base zero.  mode selects whether
// the iterator yields the reads starting in the range or the reads
// overlapping it.
func NewRefIterator(p Provider, refName string, start, limit int, mode Mode) Iterator {
	h, err := p.GetHeader()
	if err != nil {
		return NewErrorIterator(err)
	}
	ref := RefByName(h, refName)
	if ref == nil {
		return NewErrorIterator(errors.Errorf("bamprovider.NewRefIterator: reference '%s' not found", refName))
	}
	return p.NewIterator(Shard{Ref: ref, Start: start, End: limit, Mode: mode})
}

// ContigLengths returns the reference names of h in header order and their
// lengths.
func ContigLengths(h *sam.Header) ([]string, map[string]int) {
	names := make([]string, 0, len(h.Refs()))
	lens := make(map[string]int, len(h.Refs()))
	for _, ref := range h.Refs() {
		names = append(names, ref.Name())
		lens[ref.Name()] = ref.Len()
	}
	return names, lens
}
