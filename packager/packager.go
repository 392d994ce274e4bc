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


// Package packager drives the production of ingestible archives: it
// resolves the asset graph of an article, builds its manifest and streams
// every asset file into a reproducible archive, retrying network failures
// with exponential backoff.
package packager

import (
	"context"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/ambraproject/rhino-pack/archive"
	"github.com/ambraproject/rhino-pack/config"
	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/logger"
	"github.com/ambraproject/rhino-pack/manifest"
	"github.com/ambraproject/rhino-pack/rhino"
)

// Repository is the remote the packager reads articles and asset files
// from. It is implemented by rhino.Client.
type Repository interface {
	GetArticle(ctx context.Context, doi string) (*rhino.Article, error)
	GetAsset(ctx context.Context, assetDOI string) (*rhino.Asset, error)
	FetchAssetFile(ctx context.Context, afid string) (*rhino.Download, error)
}

// Result describes a produced archive.
type Result struct {
	DOI     string   `json:"doi"`
	Path    string   `json:"path"`
	Digest  string   `json:"digest"`
	Size    int64    `json:"size"`
	Entries []string `json:"entries"`
	Retries int      `json:"retries"`
}

// Packager produces ingestible archives. Jobs share no mutable state, a
// Packager can run several of them concurrently.
type Packager struct {
	repo Repository
	opts config.Options
	log  logr.Logger
}

// New returns a Packager reading from repo and writing archives to the
// output directory of opts.
func New(repo Repository, opts config.Options, log logr.Logger) *Packager {
	return &Packager{
		repo: repo,
		opts: opts,
		log:  log,
	}
}

// ArchiveName returns the file name of the archive of an article.
func ArchiveName(article doi.Identifier) string {
	return article.FileName() + ".zip"
}

// Package produces the archive of one article. The input is an article
// DOI, an 'info:doi/' URI or a stem expanded with the configured prefix.
// On failure no archive is left in the output directory.
func (p *Packager) Package(ctx context.Context, input string) (*Result, error) {
	articleDOI := doi.Normalize(input, p.opts.Prefix)
	log := p.log.WithValues("doi", articleDOI, "job", uuid.NewString())

	res, err := p.pack(ctx, log, articleDOI)
	if err != nil {
		err = fault.Scope(err, articleDOI, "")
		log.Error(err, "packaging failed", "kind", fault.KindOf(err).String())
		return nil, err
	}
	return res, nil
}

func (p *Packager) pack(ctx context.Context, log logr.Logger, articleDOI string) (*Result, error) {
	start := time.Now()
	id, err := doi.ParseDOI(articleDOI)
	if err != nil {
		return nil, err
	}
	if !id.IsRoot() {
		return nil, fault.New(fault.Protocol, "'%s' is an asset DOI", articleDOI)
	}

	j := &job{Packager: p, log: log}
	log.V(logger.DebugLevel).Info("resolving article")
	bundle, meta, err := j.resolve(ctx, articleDOI)
	if err != nil {
		return nil, err
	}

	m, files, err := manifest.Build(bundle)
	if err != nil {
		return nil, err
	}
	doc, err := m.Marshal()
	if err != nil {
		return nil, err
	}

	target, err := securejoin.SecureJoin(p.opts.OutDir, ArchiveName(id))
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "invalid archive path")
	}
	w, err := archive.Create(target, archive.WithDigestAlgorithm(p.opts.DigestAlgo()))
	if err != nil {
		return nil, err
	}
	defer w.Abort()

	if err := w.Add(ctx, manifest.FileName, archive.Bytes(doc), archive.Deflate); err != nil {
		return nil, err
	}
	if err := w.Add(ctx, manifest.DTDFileName, archive.Bytes(manifest.DTD), archive.Deflate); err != nil {
		return nil, err
	}
	for _, f := range files {
		afid := f.AFID.String()
		if err := j.transfer(ctx, w, afid, f.Entry, meta[afid]); err != nil {
			return nil, err
		}
	}

	res, err := w.Close()
	if err != nil {
		return nil, err
	}
	log.Info("archive written", "path", res.Path, "size", res.Size, "digest", res.Digest.String(),
		"entries", len(res.Entries), "retries", j.retries, "duration", time.Since(start).String())

	return &Result{
		DOI:     articleDOI,
		Path:    res.Path,
		Digest:  res.Digest.String(),
		Size:    res.Size,
		Entries: res.Entries,
		Retries: j.retries,
	}, nil
}
