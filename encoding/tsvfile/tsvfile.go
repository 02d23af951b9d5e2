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
// Package tsvfile creates the tab-separated report files written by the
// evidence pipeline.  Paths ending in ".gz" are bgzip-compressed.  Paths are
// opened through github.com/grailbio/base/file, so any registered scheme
// (e.g. s3://) works.
package tsvfile

import (
	"context"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Writer is a tsv.Writer bound to a created file.
type Writer struct {
	*tsv.Writer
	ctx  context.Context
	path string
	dst  file.File
	bgzf *bgzf.Writer
}

// Create creates path and returns a Writer for it.  The caller must call
// Close.
func Create(ctx context.Context, path string) (*Writer, error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "tsvfile.Create:", path)
	}
	w := &Writer{ctx: ctx, path: path, dst: dst}
	if strings.HasSuffix(path, ".gz") {
		w.bgzf = bgzf.NewWriter(dst.Writer(ctx), 1)
		w.Writer = tsv.NewWriter(w.bgzf)
	} else {
		w.Writer = tsv.NewWriter(dst.Writer(ctx))
	}
	return w, nil
}

// Path returns the path passed to Create.
func (w *Writer) Path() string { return w.path }

// WriteInt appends a decimal integer field.
func (w *Writer) WriteInt(v int) {
	w.WriteString(strconv.Itoa(v))
}

// WriteFloat appends a float field with prec digits after the decimal point.
func (w *Writer) WriteFloat(v float64, prec int) {
	w.WriteString(strconv.FormatFloat(v, 'f', prec, 64))
}

// Close flushes pending output and closes the file.
func (w *Writer) Close() (err error) {
	defer file.CloseAndReport(w.ctx, w.dst, &err)
	if err = w.Flush(); err != nil {
		return errors.E(err, "tsvfile.Close:", w.path)
	}
	if w.bgzf != nil {
		if err = w.bgzf.Close(); err != nil {
			return errors.E(err, "tsvfile.Close:", w.path)
		}
	}
	return nil
}
