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


package testserver

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// File is an asset file served by the RhinoServer.
type File struct {
	AFID        string
	ContentType string
	Body        []byte

	// Size overrides the advertised size. Zero advertises len(Body).
	Size int64

	// MD5 overrides the advertised MD5 hex digest. Empty advertises the
	// digest of Body.
	MD5 string

	// SHA1 is advertised when set.
	SHA1 string

	// NoChecksum advertises no MD5 at all.
	NoChecksum bool
}

// Article is an article record served by the RhinoServer.
type Article struct {
	DOI              string
	LastModified     string
	StrikingImageURI string
	Files            []File

	// ExternalAssets leaves the asset files out of the article record so
	// that they have to be fetched from the assets endpoint.
	ExternalAssets bool
}

// Response is a canned response served once for a path before the
// fixtures are consulted.
type Response struct {
	Status      int
	Body        string
	ContentType string
}

// RhinoServer is a fake Rhino API serving articles, assets and asset
// files from in-memory fixtures. Canned responses can be queued per path
// to simulate outages and malformed replies.
type RhinoServer struct {
	*HTTPServer

	apiVersion string

	mu        sync.Mutex
	articles  map[string]Article
	responses map[string][]Response
	requests  map[string]int
}

// NewRhinoServer returns a RhinoServer serving the API under the given
// version path segment.
func NewRhinoServer(apiVersion string) *RhinoServer {
	s := &RhinoServer{
		apiVersion: apiVersion,
		articles:   map[string]Article{},
		responses:  map[string][]Response{},
		requests:   map[string]int{},
	}
	s.HTTPServer = NewHTTPServer(s)
	return s
}

// ArticlePath returns the API path of an article record.
func ArticlePath(doi string) string {
	return "/articles/" + doi
}

// AssetPath returns the API path of an asset record.
func AssetPath(doi string) string {
	return "/assets/" + doi
}

// AssetFilePath returns the API path of an asset file.
func AssetFilePath(afid string) string {
	return "/assetfiles/" + afid
}

// AddArticle adds or replaces an article fixture.
func (s *RhinoServer) AddArticle(a Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.DOI] = a
}

// Respond queues canned responses for the given API path. They are served
// in order, one per request, before the fixtures answer again.
func (s *RhinoServer) Respond(path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = append(s.responses[path], responses...)
}

// Requests returns the number of requests received for the given API path.
func (s *RhinoServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// ServeHTTP implements http.Handler.
func (s *RhinoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	base := ""
	if s.apiVersion != "" {
		base = "/" + s.apiVersion
	}
	if !strings.HasPrefix(r.URL.Path, base+"/") {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, base)

	s.mu.Lock()
	s.requests[path]++
	if queued := s.responses[path]; len(queued) > 0 {
		resp := queued[0]
		s.responses[path] = queued[1:]
		s.mu.Unlock()
		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write([]byte(resp.Body))
		return
	}
	defer s.mu.Unlock()

	switch {
	case path == "/articles":
		list := map[string]any{}
		for doi, a := range s.articles {
			list[doi] = map[string]string{"lastModified": a.LastModified}
		}
		writeJSON(w, list)
	case strings.HasPrefix(path, "/articles/"):
		a, ok := s.articles[strings.TrimPrefix(path, "/articles/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, articleRecord(a))
	case strings.HasPrefix(path, "/assets/"):
		files, ok := s.assetRecord(strings.TrimPrefix(path, "/assets/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, files)
	case strings.HasPrefix(path, "/assetfiles/"):
		f, ok := s.file(strings.TrimPrefix(path, "/assetfiles/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		if f.ContentType != "" {
			w.Header().Set("Content-Type", f.ContentType)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
		_, _ = w.Write(f.Body)
	default:
		http.NotFound(w, r)
	}
}

func (s *RhinoServer) assetRecord(assetDOI string) (map[string]any, bool) {
	for _, a := range s.articles {
		files := map[string]any{}
		for _, f := range a.Files {
			if assetOf(f.AFID) == assetDOI {
				files[f.AFID] = fileRecord(f)
			}
		}
		if len(files) > 0 {
			return files, true
		}
	}
	return nil, false
}

func (s *RhinoServer) file(afid string) (File, bool) {
	for _, a := range s.articles {
		for _, f := range a.Files {
			if f.AFID == afid {
				return f, true
			}
		}
	}
	return File{}, false
}

func articleRecord(a Article) map[string]any {
	assets := map[string]map[string]any{}
	for _, f := range a.Files {
		asset := assetOf(f.AFID)
		if _, ok := assets[asset]; !ok {
			assets[asset] = map[string]any{}
		}
		if !a.ExternalAssets {
			assets[asset][f.AFID] = fileRecord(f)
		}
	}
	record := map[string]any{
		"doi":          a.DOI,
		"lastModified": a.LastModified,
		"assets":       assets,
	}
	if a.StrikingImageURI != "" {
		record["strkImgURI"] = a.StrikingImageURI
	}
	return record
}

func fileRecord(f File) map[string]any {
	size := f.Size
	if size == 0 {
		size = int64(len(f.Body))
	}
	record := map[string]any{
		"contentType":  f.ContentType,
		"size":         size,
		"created":      "2012-06-27T00:00:00Z",
		"lastModified": "2012-06-27T00:00:00Z",
	}
	if !f.NoChecksum {
		sum := f.MD5
		if sum == "" {
			sum = MD5Of(f.Body)
		}
		record["md5"] = sum
	}
	if f.SHA1 != "" {
		record["sha1"] = f.SHA1
	}
	return record
}

// assetOf strips the representation extension of an AFID.
func assetOf(afid string) string {
	if i := strings.LastIndex(afid, "."); i > 0 {
		return afid[:i]
	}
	return afid
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// MD5Of returns the hex MD5 digest of b.
func MD5Of(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// SHA1Of returns the hex SHA-1 digest of b.
func SHA1Of(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// DOIs returns the DOIs of all article fixtures, sorted.
func (s *RhinoServer) DOIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	dois := make([]string, 0, len(s.articles))
	for doi := range s.articles {
		dois = append(dois, doi)
	}
	sort.Strings(dois)
	return dois
}
