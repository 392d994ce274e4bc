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


package rhino_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"

	"github.com/ambraproject/rhino-pack/config"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/rhino"
	"github.com/ambraproject/rhino-pack/testserver"
)

const articleDOI = "10.1371/journal.pone.0038869"

func fixture() testserver.Article {
	return testserver.Article{
		DOI:              articleDOI,
		LastModified:     "2012-07-01T00:00:00Z",
		StrikingImageURI: "info:doi/" + articleDOI + ".g001",
		Files: []testserver.File{
			{AFID: articleDOI + ".XML", ContentType: "text/xml", Body: []byte("<article/>")},
			{AFID: articleDOI + ".PDF", ContentType: "application/pdf", Body: []byte("%PDF-1.4")},
			{AFID: articleDOI + ".g001.TIF", ContentType: "image/tiff", Body: []byte("tif bytes"),
				SHA1: testserver.SHA1Of([]byte("tif bytes"))},
		},
	}
}

func newServer(t *testing.T) *testserver.RhinoServer {
	srv := testserver.NewRhinoServer("v1")
	srv.AddArticle(fixture())
	srv.Start()
	t.Cleanup(srv.Stop)
	return srv
}

func newClient(t *testing.T, server string, mutate ...func(*config.Options)) *rhino.Client {
	t.Helper()
	opts := config.Default()
	opts.Server = server
	opts.OutDir = t.TempDir()
	opts.Timeout = 5 * time.Second
	for _, m := range mutate {
		m(&opts)
	}
	c, err := rhino.NewClient(opts, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_GetArticle(t *testing.T) {
	srv := newServer(t)

	for _, server := range []string{srv.URL(), srv.URL() + "/"} {
		t.Run(server, func(t *testing.T) {
			g := NewWithT(t)
			c := newClient(t, server)

			a, err := c.GetArticle(context.TODO(), articleDOI)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(a.DOI).To(Equal(articleDOI))
			g.Expect(a.StrikingImageURI).To(Equal("info:doi/" + articleDOI + ".g001"))
			g.Expect(a.AssetDOIs()).To(Equal([]string{articleDOI, articleDOI + ".g001"}))

			root := a.Assets[articleDOI]
			g.Expect(root.AFIDs()).To(Equal([]string{articleDOI + ".PDF", articleDOI + ".XML"}))
			xml := root[articleDOI+".XML"]
			g.Expect(xml.AFID).To(Equal(articleDOI + ".XML"))
			g.Expect(xml.ContentType).To(Equal("text/xml"))
			g.Expect(xml.Size).To(Equal(int64(len("<article/>"))))
			g.Expect(xml.MD5).To(Equal(testserver.MD5Of([]byte("<article/>"))))

			tif := a.Assets[articleDOI+".g001"][articleDOI+".g001.TIF"]
			g.Expect(tif.Checksum().SHA1).To(Equal(testserver.SHA1Of([]byte("tif bytes"))))
		})
	}
}

func TestClient_GetAsset(t *testing.T) {
	g := NewWithT(t)
	srv := testserver.NewRhinoServer("v1")
	a := fixture()
	a.ExternalAssets = true
	srv.AddArticle(a)
	srv.Start()
	defer srv.Stop()
	c := newClient(t, srv.URL())

	article, err := c.GetArticle(context.TODO(), articleDOI)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(article.Assets[articleDOI+".g001"]).To(BeEmpty())

	asset, err := c.GetAsset(context.TODO(), articleDOI+".g001")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(asset.DOI).To(Equal(articleDOI + ".g001"))
	g.Expect(asset.Files.AFIDs()).To(Equal([]string{articleDOI + ".g001.TIF"}))
	g.Expect(asset.Files[articleDOI+".g001.TIF"].AFID).To(Equal(articleDOI + ".g001.TIF"))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responses []testserver.Response
		doi       string
		want      fault.Kind
	}{
		{
			name: "unknown article",
			doi:  "10.1371/journal.pone.0000000",
			want: fault.NotFound,
		},
		{
			name:      "server unavailable",
			doi:       articleDOI,
			responses: []testserver.Response{{Status: http.StatusServiceUnavailable}},
			want:      fault.Transport,
		},
		{
			name:      "too many requests",
			doi:       articleDOI,
			responses: []testserver.Response{{Status: http.StatusTooManyRequests}},
			want:      fault.Transport,
		},
		{
			name:      "bad request",
			doi:       articleDOI,
			responses: []testserver.Response{{Status: http.StatusBadRequest}},
			want:      fault.Protocol,
		},
		{
			name:      "malformed body",
			doi:       articleDOI,
			responses: []testserver.Response{{Status: http.StatusOK, Body: `{"doi": `}},
			want:      fault.Protocol,
		},
		{
			name:      "wrong article",
			doi:       articleDOI,
			responses: []testserver.Response{{Status: http.StatusOK, Body: `{"doi": "10.1371/journal.pone.0000001"}`}},
			want:      fault.Protocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			srv := newServer(t)
			srv.Respond(testserver.ArticlePath(tt.doi), tt.responses...)
			c := newClient(t, srv.URL())

			_, err := c.GetArticle(context.TODO(), tt.doi)
			g.Expect(err).To(HaveOccurred())
			g.Expect(fault.KindOf(err)).To(Equal(tt.want))
			g.Expect(err.Error()).To(ContainSubstring(tt.doi))
		})
	}
}

func TestClient_ListArticles(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t)
	srv.AddArticle(testserver.Article{DOI: "10.1371/journal.pbio.0030408"})
	srv.AddArticle(testserver.Article{DOI: "10.1371/image.pbio.v01.i03"})
	srv.AddArticle(testserver.Article{DOI: "10.9999/journal.xyz.0000001"})
	c := newClient(t, srv.URL())

	dois, err := c.ListArticles(context.TODO(), rhino.ListOptions{})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(dois).To(Equal([]string{
		"10.1371/image.pbio.v01.i03",
		"10.1371/journal.pbio.0030408",
		articleDOI,
	}))

	dois, err = c.ListArticles(context.TODO(), rhino.ListOptions{Filter: regexp.MustCompile(`journal\.pbio`)})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(dois).To(Equal([]string{"10.1371/journal.pbio.0030408"}))

	srv.Respond("/articles", testserver.Response{Status: http.StatusOK, Body: `["not", "an", "object"]`})
	_, err = c.ListArticles(context.TODO(), rhino.ListOptions{})
	g.Expect(errors.Is(err, fault.Protocol)).To(BeTrue())
}

func TestClient_FetchAssetFile(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t)
	c := newClient(t, srv.URL())

	d, err := c.FetchAssetFile(context.TODO(), articleDOI+".g001.TIF")
	g.Expect(err).ToNot(HaveOccurred())
	defer d.Close()

	b, err := io.ReadAll(d)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(b)).To(Equal("tif bytes"))
	g.Expect(d.ContentType).To(Equal("image/tiff"))
	g.Expect(d.ContentLength).To(Equal(int64(len(b))))
	g.Expect(d.BytesRead()).To(Equal(int64(len(b))))
	g.Expect(d.Checksum()).To(Equal(rhino.Checksum{
		MD5:  testserver.MD5Of(b),
		SHA1: testserver.SHA1Of(b),
	}))

	_, err = c.FetchAssetFile(context.TODO(), articleDOI+".g009.TIF")
	g.Expect(errors.Is(err, fault.NotFound)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("afid '" + articleDOI + ".g009.TIF'"))
}

func TestClient_TLSVerify(t *testing.T) {
	g := NewWithT(t)
	srv := testserver.NewRhinoServer("v1")
	srv.AddArticle(fixture())
	srv.StartTLS()
	defer srv.Stop()

	c := newClient(t, srv.URL())
	_, err := c.GetArticle(context.TODO(), articleDOI)
	g.Expect(fault.KindOf(err)).To(Equal(fault.Configuration))

	c = newClient(t, srv.URL(), func(o *config.Options) { o.TLSVerify = false })
	_, err = c.GetArticle(context.TODO(), articleDOI)
	g.Expect(err).ToNot(HaveOccurred())
}

func TestClient_Cancelled(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t)
	c := newClient(t, srv.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetArticle(ctx, articleDOI)
	g.Expect(fault.KindOf(err)).To(Equal(fault.Cancelled))
}

func TestClient_Timeout(t *testing.T) {
	g := NewWithT(t)
	srv := testserver.NewRhinoServer("v1")
	srv.AddArticle(fixture())
	srv.WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			next.ServeHTTP(w, r)
		})
	})
	srv.Start()
	defer srv.Stop()

	c := newClient(t, srv.URL(), func(o *config.Options) { o.Timeout = 50 * time.Millisecond })
	_, err := c.GetArticle(context.TODO(), articleDOI)
	g.Expect(fault.KindOf(err)).To(Equal(fault.Transport))
}

func TestClient_RateLimit(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t)
	c := newClient(t, srv.URL(), func(o *config.Options) { o.RequestsPerSecond = 20 })

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.GetArticle(context.TODO(), articleDOI)
		g.Expect(err).ToNot(HaveOccurred())
	}
	g.Expect(time.Since(start)).To(BeNumerically(">=", 90*time.Millisecond))
}

func TestChecksum_Verify(t *testing.T) {
	g := NewWithT(t)

	computed := rhino.Checksum{MD5: "0cc175b9c0f1b6a831c399e269772661", SHA1: "86f7e437faa5a7fce15d1ddcb9eaeaea377667b8"}
	g.Expect(rhino.Checksum{}.Verify(computed)).To(Succeed())
	g.Expect(rhino.Checksum{MD5: "0CC175B9C0F1B6A831C399E269772661"}.Verify(computed)).To(Succeed())
	g.Expect(rhino.Checksum{SHA1: computed.SHA1}.Verify(computed)).To(Succeed())

	err := rhino.Checksum{MD5: "deadbeef"}.Verify(computed)
	g.Expect(errors.Is(err, fault.Integrity)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("md5"))

	err = rhino.Checksum{SHA1: "deadbeef"}.Verify(computed)
	g.Expect(errors.Is(err, fault.Integrity)).To(BeTrue())
	g.Expect(rhino.Checksum{}.IsZero()).To(BeTrue())
}
