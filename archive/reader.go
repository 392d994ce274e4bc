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
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ambraproject/rhino-pack/fault"
)

// Entry describes one entry of an archive.
type Entry struct {
	Name     string
	Method   Method
	Modified time.Time
	Mode     os.FileMode
	Size     uint64
}

// Reader gives access to the entries of an archive on disk.
type Reader struct {
	zr *zip.ReadCloser
}

// Inspect opens the archive at path for reading.
func Inspect(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fault.Wrap(fault.Archive, err, "failed to open archive '%s'", path)
	}
	return &Reader{zr: zr}, nil
}

// Entries returns the entries in archive order.
func (r *Reader) Entries() []Entry {
	entries := make([]Entry, 0, len(r.zr.File))
	for _, f := range r.zr.File {
		entries = append(entries, Entry{
			Name:     f.Name,
			Method:   Method(f.Method),
			Modified: f.Modified,
			Mode:     f.Mode(),
			Size:     f.UncompressedSize64,
		})
	}
	return entries
}

// Names returns the entry names in archive order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.zr.File))
	for _, f := range r.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Open opens the named entry.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	for _, f := range r.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fault.Wrap(fault.Archive, err, "failed to open entry '%s'", name)
			}
			return rc, nil
		}
	}
	return nil, fault.New(fault.Archive, "entry '%s' not found", name)
}

// ReadFile returns the content of the named entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fault.Wrap(fault.Archive, err, "failed to read entry '%s'", name)
	}
	return b, nil
}

// Close closes the archive.
func (r *Reader) Close() error {
	return r.zr.Close()
}
