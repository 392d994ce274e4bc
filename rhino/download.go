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


package rhino

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"net/http"

	"github.com/ambraproject/rhino-pack/fault"
)

// Download is the byte stream of one asset file. Content hashes are
// computed while the stream is read, so the payload is never buffered.
type Download struct {
	AFID          string
	ContentType   string
	ContentLength int64

	ctx    context.Context
	body   io.ReadCloser
	cancel context.CancelFunc
	md5    hash.Hash
	sha1   hash.Hash
	n      int64
}

func newDownload(ctx context.Context, afid string, resp *http.Response, cancel context.CancelFunc) *Download {
	return &Download{
		AFID:          afid,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		ctx:           ctx,
		body:          resp.Body,
		cancel:        cancel,
		md5:           md5.New(),
		sha1:          sha1.New(),
	}
}

// Read implements io.Reader. Errors other than io.EOF are returned as
// Transport or, when the caller cancelled, Cancelled faults.
func (d *Download) Read(p []byte) (int, error) {
	n, err := d.body.Read(p)
	if n > 0 {
		d.md5.Write(p[:n])
		d.sha1.Write(p[:n])
		d.n += int64(n)
	}
	if err != nil && err != io.EOF {
		if d.ctx.Err() != nil {
			err = fault.Wrap(fault.Cancelled, d.ctx.Err(), "download cancelled").WithAFID(d.AFID)
		} else {
			err = fault.Wrap(fault.Transport, err, "failed to read body").WithAFID(d.AFID)
		}
	}
	return n, err
}

// Close releases the connection and the per-call timeout.
func (d *Download) Close() error {
	defer d.cancel()
	return d.body.Close()
}

// BytesRead returns the number of bytes read so far.
func (d *Download) BytesRead() int64 {
	return d.n
}

// Checksum returns the hashes of the bytes read so far.
func (d *Download) Checksum() Checksum {
	return Checksum{
		MD5:  hex.EncodeToString(d.md5.Sum(nil)),
		SHA1: hex.EncodeToString(d.sha1.Sum(nil)),
	}
}
