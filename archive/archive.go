/*
Copyright 2026 The rhino-pack Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


// Package archive assembles reproducible deflate ZIP archives, streaming
// entries into a file or an in-memory buffer.
package archive

import (
	"bytes"
	"context"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fluxcd/pkg/lockedfile"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"

	"github.com/ambraproject/rhino-pack/fault"
)

// Method is the compression method of an entry.
type Method uint16

const (
	// Deflate compresses the entry. It is the default for every entry.
	Deflate = Method(zip.Deflate)
	// Store writes the entry uncompressed.
	Store = Method(zip.Store)
)

const (
	// DefaultFileMode is the permission mode recorded for every entry.
	DefaultFileMode os.FileMode = 0o644
	// DefaultArchiveMode is the permission mode of archives written to disk.
	DefaultArchiveMode os.FileMode = 0o644
)

// Epoch is the modification time recorded for every entry, the earliest
// time the MS-DOS date format can represent.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result describes a finalized archive.
type Result struct {
	// Path is the archive location, empty for in-memory archives.
	Path    string
	Size    int64
	Digest  digest.Digest
	Entries []string
}

// Option configures a Writer.
type Option func(*options)

type options struct {
	algorithm digest.Algorithm
	level     int
}

// WithDigestAlgorithm sets the algorithm used to calculate the archive
// digest. Defaults to digest.Canonical.
func WithDigestAlgorithm(a digest.Algorithm) Option {
	return func(o *options) {
		o.algorithm = a
	}
}

// WithLevel sets the deflate compression level. Defaults to
// flate.DefaultCompression.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// Writer writes the entries of one archive. It is owned by a single
// packaging job and is not safe for concurrent use.
type Writer struct {
	path    string
	tmpName string
	tmp     *os.File
	unlock  func()

	sink     *sinkWriter
	zw       *zip.Writer
	digester digest.Digester
	counter  *writeCounter

	names   map[string]bool
	entries []string
	done    bool
}

// Create returns a Writer for an archive at the given path. Entries are
// written to a temporary file next to it, which is renamed to path on
// Close and removed on Abort. The path is locked for the lifetime of the
// Writer.
func Create(p string, opts ...Option) (w *Writer, err error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	unlock, err := lockedfile.MutexAt(p + ".lock").Lock()
	if err != nil {
		return nil, fault.Wrap(fault.Archive, err, "failed to lock '%s'", p)
	}
	defer func() {
		if err != nil {
			unlockAndRemove(unlock, p)
		}
	}()

	dir, file := filepath.Split(p)
	if dir == "" {
		dir = "."
	}
	tf, err := os.CreateTemp(dir, file+".*.tmp")
	if err != nil {
		return nil, fault.Wrap(fault.Archive, err, "failed to create temporary archive")
	}

	w = newWriter(tf, o)
	w.path = p
	w.tmp = tf
	w.tmpName = tf.Name()
	w.unlock = unlock
	return w, nil
}

// NewBuffer returns a Writer for an in-memory archive written to buf.
func NewBuffer(buf *bytes.Buffer, opts ...Option) (*Writer, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return newWriter(buf, o), nil
}

func newOptions(opts []Option) (options, error) {
	o := options{algorithm: digest.Canonical, level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.algorithm.Available() {
		return o, fault.New(fault.Configuration, "unsupported digest algorithm '%s'", o.algorithm)
	}
	if o.level < flate.HuffmanOnly || o.level > flate.BestCompression {
		return o, fault.New(fault.Configuration, "invalid compression level %d", o.level)
	}
	return o, nil
}

func newWriter(out io.Writer, o options) *Writer {
	w := &Writer{
		digester: o.algorithm.Digester(),
		counter:  &writeCounter{},
		names:    map[string]bool{},
	}
	w.sink = &sinkWriter{w: io.MultiWriter(out, w.digester.Hash(), w.counter)}
	w.zw = zip.NewWriter(w.sink)
	level := o.level
	w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return w
}

// Add writes one entry, streaming its bytes from src. Entry names must be
// unique, relative and slash separated. Errors of the source keep their
// kind, failures to write the archive are Archive faults.
func (w *Writer) Add(ctx context.Context, name string, src Source, method Method) error {
	if w.done {
		return fault.New(fault.Archive, "archive is closed")
	}
	if err := validName(name); err != nil {
		return err
	}
	if w.names[name] {
		return fault.New(fault.Archive, "duplicate entry '%s'", name)
	}
	if err := ctx.Err(); err != nil {
		return fault.Wrap(fault.Cancelled, err, "adding entry '%s' cancelled", name)
	}
	w.names[name] = true

	rc, err := src.Open(ctx)
	if err != nil {
		return w.sourceError(ctx, name, err)
	}
	defer rc.Close()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   uint16(method),
		Modified: Epoch,
	}
	hdr.SetMode(DefaultFileMode)

	ew, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fault.Wrap(fault.Archive, err, "failed to create entry '%s'", name)
	}
	if _, err := io.Copy(ew, &contextReader{ctx: ctx, r: rc}); err != nil {
		if w.sink.err != nil {
			return fault.Wrap(fault.Archive, w.sink.err, "failed to write entry '%s'", name)
		}
		return w.sourceError(ctx, name, err)
	}
	w.entries = append(w.entries, name)
	return nil
}

func (w *Writer) sourceError(ctx context.Context, name string, err error) error {
	var fe *fault.Error
	switch {
	case errors.As(err, &fe):
		return err
	case ctx.Err() != nil:
		return fault.Wrap(fault.Cancelled, err, "adding entry '%s' cancelled", name)
	default:
		return fault.Wrap(fault.Archive, err, "failed to read entry '%s'", name)
	}
}

// Entries returns the names of the entries written so far.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Close writes the central directory and, for archives on disk, moves the
// temporary file to its final path. The Writer is aborted on failure.
func (w *Writer) Close() (*Result, error) {
	if w.done {
		return nil, fault.New(fault.Archive, "archive is closed")
	}
	if err := w.zw.Close(); err != nil {
		w.Abort()
		return nil, fault.Wrap(fault.Archive, err, "failed to finalize archive")
	}

	if w.tmp != nil {
		if err := w.tmp.Sync(); err != nil {
			w.Abort()
			return nil, fault.Wrap(fault.Archive, err, "failed to sync archive")
		}
		if err := w.tmp.Close(); err != nil {
			w.Abort()
			return nil, fault.Wrap(fault.Archive, err, "failed to close archive")
		}
		if err := os.Chmod(w.tmpName, DefaultArchiveMode); err != nil {
			w.Abort()
			return nil, fault.Wrap(fault.Archive, err, "failed to set archive permissions")
		}
		if err := os.Rename(w.tmpName, w.path); err != nil {
			w.Abort()
			return nil, fault.Wrap(fault.Archive, err, "failed to move archive to '%s'", w.path)
		}
		unlockAndRemove(w.unlock, w.path)
	}
	w.done = true

	return &Result{
		Path:    w.path,
		Size:    w.counter.written,
		Digest:  w.digester.Digest(),
		Entries: w.Entries(),
	}, nil
}

// Abort discards the archive. No file is left at the target path, and the
// temporary file is removed. Calling Abort after Close or Abort is a no-op.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	if w.tmp != nil {
		w.tmp.Close()
		os.Remove(w.tmpName)
		unlockAndRemove(w.unlock, w.path)
	}
}

func unlockAndRemove(unlock func(), p string) {
	unlock()
	os.Remove(p + ".lock")
}

func validName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) ||
		path.Clean(name) != name || name == ".." || strings.HasPrefix(name, "../") {
		return fault.New(fault.Archive, "invalid entry name '%s'", name)
	}
	return nil
}
