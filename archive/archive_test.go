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
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/opencontainers/go-digest"

	"github.com/ambraproject/rhino-pack/fault"
)

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func writeSample(t *testing.T, w *Writer) {
	t.Helper()
	ctx := context.TODO()
	for _, e := range []struct {
		name string
		body string
	}{
		{"MANIFEST.xml", "<manifest/>"},
		{"manifest.dtd", "<!ELEMENT manifest (articleBundle) >"},
		{"pone.0038869.xml", strings.Repeat("<p>text</p>", 100)},
		{"pone.0038869.pdf", "%PDF-1.4"},
	} {
		if err := w.Add(ctx, e.name, Bytes([]byte(e.body)), Deflate); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCreate(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "pone.0038869.zip")

	w, err := Create(target)
	g.Expect(err).ToNot(HaveOccurred())
	writeSample(t, w)
	g.Expect(dirNames(t, dir)).To(ContainElement(HavePrefix("pone.0038869.zip.")))

	res, err := w.Close()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Path).To(Equal(target))
	g.Expect(res.Entries).To(Equal([]string{"MANIFEST.xml", "manifest.dtd", "pone.0038869.xml", "pone.0038869.pdf"}))
	g.Expect(dirNames(t, dir)).To(Equal([]string{"pone.0038869.zip"}))

	b, err := os.ReadFile(target)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Size).To(Equal(int64(len(b))))
	g.Expect(res.Digest).To(Equal(digest.FromBytes(b)))

	fi, err := os.Stat(target)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fi.Mode().Perm()).To(Equal(DefaultArchiveMode))

	r, err := Inspect(target)
	g.Expect(err).ToNot(HaveOccurred())
	defer r.Close()
	g.Expect(r.Names()).To(Equal(res.Entries))
	for _, e := range r.Entries() {
		g.Expect(e.Method).To(Equal(Deflate))
		g.Expect(e.Modified).To(BeTemporally("==", Epoch))
		g.Expect(e.Mode.Perm()).To(Equal(DefaultFileMode))
	}
	body, err := r.ReadFile("pone.0038869.pdf")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(body)).To(Equal("%PDF-1.4"))

	_, err = r.Open("missing.tif")
	g.Expect(errors.Is(err, fault.Archive)).To(BeTrue())
}

func TestCreate_Reproducible(t *testing.T) {
	g := NewWithT(t)

	var digests []digest.Digest
	var contents [][]byte
	for i := 0; i < 2; i++ {
		target := filepath.Join(t.TempDir(), "pone.0038869.zip")
		w, err := Create(target)
		g.Expect(err).ToNot(HaveOccurred())
		writeSample(t, w)
		res, err := w.Close()
		g.Expect(err).ToNot(HaveOccurred())

		b, err := os.ReadFile(target)
		g.Expect(err).ToNot(HaveOccurred())
		digests = append(digests, res.Digest)
		contents = append(contents, b)
	}
	g.Expect(contents[1]).To(Equal(contents[0]))
	g.Expect(digests[1]).To(Equal(digests[0]))

	var buf bytes.Buffer
	w, err := NewBuffer(&buf)
	g.Expect(err).ToNot(HaveOccurred())
	writeSample(t, w)
	res, err := w.Close()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Path).To(BeEmpty())
	g.Expect(buf.Bytes()).To(Equal(contents[0]))
	g.Expect(res.Digest).To(Equal(digests[0]))
}

func TestWriter_Add(t *testing.T) {
	tests := []struct {
		name string
		add  func(w *Writer) error
		want fault.Kind
	}{
		{
			name: "duplicate entry",
			add: func(w *Writer) error {
				if err := w.Add(context.TODO(), "a.tif", Bytes([]byte("a")), Deflate); err != nil {
					return err
				}
				return w.Add(context.TODO(), "a.tif", Bytes([]byte("b")), Deflate)
			},
			want: fault.Archive,
		},
		{
			name: "absolute name",
			add: func(w *Writer) error {
				return w.Add(context.TODO(), "/etc/passwd", Bytes(nil), Deflate)
			},
			want: fault.Archive,
		},
		{
			name: "parent name",
			add: func(w *Writer) error {
				return w.Add(context.TODO(), "../a.tif", Bytes(nil), Deflate)
			},
			want: fault.Archive,
		},
		{
			name: "source fault",
			add: func(w *Writer) error {
				return w.Add(context.TODO(), "a.tif", SourceFunc(func(context.Context) (io.ReadCloser, error) {
					return nil, fault.New(fault.Transport, "connection reset")
				}), Deflate)
			},
			want: fault.Transport,
		},
		{
			name: "missing file",
			add: func(w *Writer) error {
				return w.Add(context.TODO(), "a.tif", File("/does/not/exist"), Deflate)
			},
			want: fault.Archive,
		},
		{
			name: "cancelled",
			add: func(w *Writer) error {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return w.Add(ctx, "a.tif", Bytes([]byte("a")), Deflate)
			},
			want: fault.Cancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			dir := t.TempDir()

			w, err := Create(filepath.Join(dir, "out.zip"))
			g.Expect(err).ToNot(HaveOccurred())

			err = tt.add(w)
			g.Expect(err).To(HaveOccurred())
			g.Expect(fault.KindOf(err)).To(Equal(tt.want))

			w.Abort()
			g.Expect(dirNames(t, dir)).To(BeEmpty())
		})
	}
}

// cancellingReader cancels its context after the first read.
type cancellingReader struct {
	cancel context.CancelFunc
	reads  int
}

func (r *cancellingReader) Read(p []byte) (int, error) {
	r.reads++
	if r.reads == 1 {
		r.cancel()
		return copy(p, "partial"), nil
	}
	return copy(p, "more"), nil
}

func TestWriter_CancelMidEntry(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()

	w, err := Create(filepath.Join(dir, "out.zip"))
	g.Expect(err).ToNot(HaveOccurred())
	writeSample(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	closed := false
	src := SourceFunc(func(context.Context) (io.ReadCloser, error) {
		return &closeRecorder{Reader: &cancellingReader{cancel: cancel}, closed: &closed}, nil
	})
	err = w.Add(ctx, "big.tif", src, Deflate)
	g.Expect(fault.KindOf(err)).To(Equal(fault.Cancelled))
	g.Expect(closed).To(BeTrue())

	w.Abort()
	g.Expect(dirNames(t, dir)).To(BeEmpty())
}

type closeRecorder struct {
	io.Reader
	closed *bool
}

func (c *closeRecorder) Close() error {
	*c.closed = true
	return nil
}

func TestWriter_Close(t *testing.T) {
	g := NewWithT(t)

	var buf bytes.Buffer
	w, err := NewBuffer(&buf, WithDigestAlgorithm(digest.SHA512), WithLevel(9))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(w.Add(context.TODO(), "raw.bin", Bytes([]byte("raw")), Store)).To(Succeed())

	res, err := w.Close()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Digest.Algorithm()).To(Equal(digest.SHA512))
	g.Expect(res.Digest).To(Equal(digest.SHA512.FromBytes(buf.Bytes())))

	_, err = w.Close()
	g.Expect(errors.Is(err, fault.Archive)).To(BeTrue())
	err = w.Add(context.TODO(), "late.bin", Bytes(nil), Deflate)
	g.Expect(errors.Is(err, fault.Archive)).To(BeTrue())

	// Abort after Close keeps the archive.
	target := filepath.Join(t.TempDir(), "kept.zip")
	w, err = Create(target)
	g.Expect(err).ToNot(HaveOccurred())
	_, err = w.Close()
	g.Expect(err).ToNot(HaveOccurred())
	w.Abort()
	g.Expect(target).To(BeAnExistingFile())
}

func TestNewBuffer_Options(t *testing.T) {
	g := NewWithT(t)

	_, err := NewBuffer(&bytes.Buffer{}, WithDigestAlgorithm("md5"))
	g.Expect(errors.Is(err, fault.Configuration)).To(BeTrue())

	_, err = NewBuffer(&bytes.Buffer{}, WithLevel(42))
	g.Expect(errors.Is(err, fault.Configuration)).To(BeTrue())
}

func TestFile(t *testing.T) {
	g := NewWithT(t)

	p := filepath.Join(t.TempDir(), "spool")
	g.Expect(os.WriteFile(p, []byte("spooled"), 0o600)).To(Succeed())

	var buf bytes.Buffer
	w, err := NewBuffer(&buf)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(w.Add(context.TODO(), "a.tif", File(p), Deflate)).To(Succeed())
	g.Expect(w.Entries()).To(Equal([]string{"a.tif"}))
	_, err = w.Close()
	g.Expect(err).ToNot(HaveOccurred())
}
