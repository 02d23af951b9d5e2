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
package tsvfile

import (
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
)

func writeTable(t *testing.T, path string) {
	w, err := Create(vcontext.Background(), path)
	assert.NoError(t, err)
	w.WriteString("#name\tcount\tfrac")
	w.EndLine()
	w.WriteString("a")
	w.WriteInt(-3)
	w.WriteFloat(0.5, 2)
	w.EndLine()
	assert.NoError(t, w.Close())
}

func TestCreatePlain(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "out.tsv")
	writeTable(t, path)
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	assert.EQ(t, string(data), "#name\tcount\tfrac\na\t-3\t0.50\n")
}

func TestCreateGzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "out.tsv.gz")
	writeTable(t, path)
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	r, err := gzip.NewReader(f)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(r)
	assert.NoError(t, err)
	assert.EQ(t, string(data), "#name\tcount\tfrac\na\t-3\t0.50\n")
}
