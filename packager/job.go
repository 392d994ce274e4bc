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


package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ambraproject/rhino-pack/archive"
	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/logger"
	"github.com/ambraproject/rhino-pack/manifest"
	"github.com/ambraproject/rhino-pack/rhino"
)

// job holds the state of packaging one article.
type job struct {
	*Packager
	log     logr.Logger
	retries int
}

// resolve fetches the article record and the asset records it does not
// embed, and checks the root asset for the required representations.
func (j *job) resolve(ctx context.Context, articleDOI string) (manifest.Bundle, map[string]rhino.AssetFile, error) {
	var article *rhino.Article
	err := j.retry(ctx, "", func() (err error) {
		article, err = j.repo.GetArticle(ctx, articleDOI)
		return err
	})
	if err != nil {
		return manifest.Bundle{}, nil, err
	}

	bundle := manifest.Bundle{
		DOI:              articleDOI,
		StrikingImageURI: article.StrikingImageURI,
		Assets:           map[string][]string{},
	}
	meta := map[string]rhino.AssetFile{}
	for _, assetDOI := range article.AssetDOIs() {
		files := article.Assets[assetDOI]
		if len(files) == 0 {
			var asset *rhino.Asset
			err := j.retry(ctx, "", func() (err error) {
				asset, err = j.repo.GetAsset(ctx, assetDOI)
				return err
			})
			if err != nil {
				return manifest.Bundle{}, nil, err
			}
			files = asset.Files
		}
		bundle.Assets[assetDOI] = files.AFIDs()
		for afid, f := range files {
			meta[afid] = f
		}
	}

	if err := j.checkRoot(articleDOI, bundle.Assets[articleDOI]); err != nil {
		return manifest.Bundle{}, nil, err
	}
	return bundle, meta, nil
}

func (j *job) checkRoot(articleDOI string, afids []string) error {
	var hasXML, hasPDF bool
	for _, afid := range afids {
		id, err := doi.ParseAFID(afid)
		if err != nil {
			return err
		}
		switch id.Representation() {
		case "XML":
			hasXML = true
		case "PDF":
			hasPDF = true
		}
	}
	if !hasXML {
		return fault.New(fault.IncompleteArticle, "article '%s' has no XML representation", articleDOI)
	}
	if !hasPDF {
		if j.opts.RequirePDF {
			return fault.New(fault.IncompleteArticle, "article '%s' has no PDF representation", articleDOI)
		}
		j.log.Info("article has no PDF representation")
	}
	return nil
}

// transfer downloads an asset file into a spool file, verifies it and
// writes it to the archive. The spool is removed once written.
func (j *job) transfer(ctx context.Context, w *archive.Writer, afid, entry string, meta rhino.AssetFile) error {
	var spool string
	err := j.retry(ctx, afid, func() (err error) {
		spool, err = j.download(ctx, afid, meta)
		return err
	})
	if err != nil {
		return fault.Scope(err, "", afid)
	}
	defer os.Remove(spool)

	if err := w.Add(ctx, entry, archive.File(spool), archive.Deflate); err != nil {
		return fault.Scope(err, "", afid)
	}
	j.log.V(logger.DebugLevel).Info("entry written", "afid", afid, "entry", entry)
	return nil
}

// download fetches one asset file into a temporary file and verifies its
// size and content hashes against the advertised metadata.
func (j *job) download(ctx context.Context, afid string, meta rhino.AssetFile) (name string, err error) {
	d, err := j.repo.FetchAssetFile(ctx, afid)
	if err != nil {
		return "", err
	}
	defer d.Close()

	f, err := os.CreateTemp("", "rhino-pack.*.afid")
	if err != nil {
		return "", fault.Wrap(fault.Archive, err, "failed to create spool file")
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	n, err := io.Copy(f, d)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			return "", err
		}
		return "", fault.Wrap(fault.Archive, err, "failed to spool asset file")
	}

	if meta.Size > 0 && n != meta.Size {
		return "", fault.New(fault.Integrity, "read %d bytes, advertised size is %d", n, meta.Size)
	}
	if err := meta.Checksum().Verify(d.Checksum()); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// retry runs fn until it succeeds, fails with a non retryable error or the
// configured number of retries is exhausted, in which case the last
// Transport failure is returned as Fatal.
func (j *job) retry(ctx context.Context, afid string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !fault.IsRetryable(err) {
			return err
		}
		if attempt >= j.opts.MaxRetries {
			return &fault.Error{
				Kind: fault.Fatal,
				AFID: afid,
				Err:  fmt.Errorf("giving up after %d attempts: %w", attempt+1, err),
			}
		}

		wait := retryablehttp.DefaultBackoff(j.opts.RetryWaitMin, j.opts.RetryWaitMax, attempt, nil)
		j.retries++
		keysAndValues := []any{"attempt", attempt + 1, "backoff", wait.String(), "error", err.Error()}
		if afid != "" {
			keysAndValues = append(keysAndValues, "afid", afid)
		}
		j.log.Info("retrying", keysAndValues...)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fault.Wrap(fault.Cancelled, ctx.Err(), "cancelled while waiting to retry")
		case <-t.C:
		}
	}
}
