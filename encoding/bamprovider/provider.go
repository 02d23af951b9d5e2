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
	"fmt"

	"github.com/grailbio/hts/sam"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index specifies the name of the BAM index file. If Index=="", it
	// defaults to path + ".bai".
	Index string
}

// Mode selects the records a Shard yields.
type Mode int

const (
	// StartInRange yields the records whose alignment start lies in the
	// shard.  Disjoint shards yield disjoint records.
	StartInRange Mode = iota
	// Overlapping yields the records whose aligned reference span overlaps
	// the shard.
	Overlapping
)

// Shard is the half-open range [Start, End) of one reference.
type Shard struct {
	Ref        *sam.Reference
	Start, End int
	Mode       Mode
}

func (s Shard) String() string {
	name := "<nil>"
	if s.Ref != nil {
		name = s.Ref.Name()
	}
	return fmt.Sprintf("%s:%d-%d", name, s.Start, s.End)
}

// Contains reports whether the shard yields r.
func (s Shard) Contains(r *sam.Record) bool {
	if r.Ref == nil || s.Ref == nil || r.Ref.ID() != s.Ref.ID() {
		return false
	}
	if s.Mode == Overlapping {
		return r.Pos < s.End && r.End() > s.Start
	}
	return r.Pos >= s.Start && r.Pos < s.End
}

// past reports whether r, and every record after it in coordinate order, is
// past the end of the shard.
func (s Shard) past(r *sam.Record) bool {
	if r.Ref == nil || r.Ref.ID() > s.Ref.ID() {
		return true
	}
	return r.Ref.ID() == s.Ref.ID() && r.Pos >= s.End
}

// Provider allows reading a BAM file in parallel. Thread safe.
type Provider interface {
	// GetHeader returns the header for the provided BAM data.  The callee
	// must not modify the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewIterator returns an iterator over the records of the shard.
	//
	// REQUIRES: Close has not been called.
	NewIterator(shard Shard) Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewIterator have been closed.
	Close() error
}

// Iterator iterates over sam.Records in a particular genomic range, in
// coordinate order. Thread compatible.
type Iterator interface {
	// Scan returns where there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of its range, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by
	// calling Err().
	//
	// REQUIRES: Close has not been called.
	Scan() bool

	// Record returns the current record in the iterator. This must be
	// called only after a call to Scan() returns true.
	//
	// REQUIRES: Close has not been called.
	Record() *sam.Record

	// Err returns the error encoutered during iteration, or nil if no error
	// occurred.  An io.EOF error will be translated to nil.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// NewProvider creates a Provider for the BAM file at path.
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := ProviderOpts{}
	for _, o := range optList {
		if o.Index != "" {
			opts.Index = o.Index
		}
	}
	return &BAMProvider{Path: path, Index: opts.Index}
}
