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
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record
	err    error
}

type fakeIterator struct {
	recs  []*sam.Record
	rec   *sam.Record
	shard Shard
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and the records of recs that fall in a shard from
// NewIterator.  recs must be sorted by coordinate.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header: header, recs: recs}
}

// NewFailingProvider creates a provider whose iterators over shards of the
// given reference fail with err.  Other shards behave as in NewFakeProvider.
func NewFailingProvider(header *sam.Header, recs []*sam.Record, refName string, err error) Provider {
	return &failingProvider{fakeProvider{header: header, recs: recs, err: err}, refName}
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	return nil
}

// NewIterator implements the Provider interface.
func (b *fakeProvider) NewIterator(shard Shard) Iterator {
	return &fakeIterator{recs: b.recs, shard: shard}
}

type failingProvider struct {
	fakeProvider
	refName string
}

// NewIterator implements the Provider interface.
func (b *failingProvider) NewIterator(shard Shard) Iterator {
	if shard.Ref != nil && shard.Ref.Name() == b.refName {
		return NewErrorIterator(b.err)
	}
	return b.fakeProvider.NewIterator(shard)
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	return nil
}

// Scan implements the Iterator interface.
func (i *fakeIterator) Scan() bool {
	for len(i.recs) > 0 {
		i.rec = i.recs[0]
		i.recs = i.recs[1:]
		if i.shard.Contains(i.rec) {
			return true
		}
	}
	return false
}

// Record implements the Iterator interface.
func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := sam.GetFromFreePool()
	*copy = *i.rec
	return copy
}
