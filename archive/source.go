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


package archive

import (
	"bytes"
	"context"
	"io"
	"os"
)

// Source produces the bytes of an archive entry. Sources are opened
// lazily, right before the entry is written, so that large payloads are
// streamed instead of held in memory.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// Bytes returns a Source serving b.
func Bytes(b []byte) Source {
	return SourceFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}

// File returns a Source reading the file at path.
func File(path string) Source {
	return SourceFunc(func(context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// contextReader fails reads once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// writeCounter is an implementation of io.Writer
// that only records the number of bytes written.
type writeCounter struct {
	written int64
}

// Write implements the io.Writer interface.
func (wc *writeCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.written += int64(n)
	return n, nil
}

// sinkWriter marks errors of the underlying writer so that they can be
// told apart from errors of the entry source.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}
