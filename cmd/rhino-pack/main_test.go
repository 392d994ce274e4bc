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


package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/ambraproject/rhino-pack/rhino"
	"github.com/ambraproject/rhino-pack/testserver"
)

const articleDOI = "10.1371/journal.pone.0038869"

func newServer(t *testing.T, dois ...string) *testserver.RhinoServer {
	t.Helper()
	srv := testserver.NewRhinoServer("v1")
	for _, d := range dois {
		srv.AddArticle(testserver.Article{
			DOI:          d,
			LastModified: "2012-06-20T00:00:00Z",
			Files: []testserver.File{
				{AFID: d + ".XML", ContentType: "text/xml", Body: []byte("<article/>")},
				{AFID: d + ".PDF", ContentType: "application/pdf", Body: []byte("%PDF")},
				{AFID: d + ".g001.TIF", ContentType: "image/tiff", Body: []byte("tif")},
			},
		})
	}
	srv.Start()
	t.Cleanup(srv.Stop)
	return srv
}

// run executes the command line and returns its stdout and exit code.
func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := 0
	if err := cmd.ExecuteContext(context.TODO()); err != nil {
		code = exitCode(err)
	}
	return stdout.String(), code
}

func TestPackageCmd(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t, articleDOI, "10.1371/journal.pbio.0030408")
	out := t.TempDir()
	report := filepath.Join(t.TempDir(), "report.json")

	stdout, code := run(t, "--server", srv.URL(), "--out", out, "--retry-wait", "1ms", "--retry-wait-max", "1ms",
		"--report", report, "pone.0038869", "pone.0000000", "info:doi/10.1371/journal.pbio.0030408")
	g.Expect(code).To(Equal(2))

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	g.Expect(lines).To(HaveLen(3))
	g.Expect(lines[0]).To(Equal(articleDOI + " OK"))
	g.Expect(lines[1]).To(HavePrefix("10.1371/journal.pone.0000000 FAILED: NotFound"))
	g.Expect(lines[2]).To(Equal("10.1371/journal.pbio.0030408 OK"))

	g.Expect(filepath.Join(out, "pone.0038869.zip")).To(BeAnExistingFile())
	g.Expect(filepath.Join(out, "pbio.0030408.zip")).To(BeAnExistingFile())
	g.Expect(report).To(BeAnExistingFile())

	stdout, code = run(t, "verify", filepath.Join(out, "pone.0038869.zip"), filepath.Join(out, "pbio.0030408.zip"))
	g.Expect(code).To(Equal(0))
	g.Expect(stdout).To(ContainSubstring("pone.0038869.zip OK"))
}

func TestPackageCmd_AllFailed(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t)

	_, code := run(t, "--server", srv.URL(), "--out", t.TempDir(), "pone.0000001")
	g.Expect(code).To(Equal(3))
}

func TestPackageCmd_Configuration(t *testing.T) {
	srv := newServer(t, articleDOI)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no articles", args: []string{"--server", srv.URL()}},
		{name: "unknown flag", args: []string{"--server", srv.URL(), "--bogus", "pone.0038869"}},
		{name: "invalid server", args: []string{"--server", "ftp://example.com", "pone.0038869"}},
		{name: "invalid prefix", args: []string{"--server", srv.URL(), "--prefix", "10", "pone.0038869"}},
		{name: "missing out dir", args: []string{"--server", srv.URL(), "--out", "/does/not/exist", "pone.0038869"}},
		{name: "invalid log level", args: []string{"--server", srv.URL(), "--log-level", "loud", "pone.0038869"}},
		{name: "invalid article", args: []string{"--server", srv.URL(), "10.1371/not a doi"}},
		{name: "asset DOI", args: []string{"--server", srv.URL(), articleDOI + ".g001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			stdout, code := run(t, tt.args...)
			g.Expect(code).To(Equal(1))
			g.Expect(stdout).To(BeEmpty())
		})
	}
	g := NewWithT(t)
	g.Expect(srv.Requests(testserver.ArticlePath(articleDOI))).To(BeZero())
}

func TestListCmd(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t, articleDOI, "10.1371/journal.pbio.0030408", "10.1371/journal.pone.0000002")

	stdout, code := run(t, "list", "--server", srv.URL(), "--filter", `pone\.`)
	g.Expect(code).To(Equal(0))
	g.Expect(strings.Fields(stdout)).To(Equal([]string{
		"10.1371/journal.pone.0000002",
		articleDOI,
	}))

	_, code = run(t, "list", "--server", srv.URL(), "--filter", "(")
	g.Expect(code).To(Equal(1))
}

func TestVerifyCmd(t *testing.T) {
	g := NewWithT(t)

	bogus := filepath.Join(t.TempDir(), "bogus.zip")
	g.Expect(os.WriteFile(bogus, []byte("not a zip"), 0o644)).To(Succeed())

	stdout, code := run(t, "verify", bogus)
	g.Expect(code).To(Equal(3))
	g.Expect(stdout).To(HavePrefix(bogus + " FAILED: ArchiveError"))
}

func TestMetaCmd(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t, articleDOI)

	stdout, code := run(t, "meta", "--server", srv.URL(), "-o", "json", "pone.0038869")
	g.Expect(code).To(Equal(0))

	var records map[string]rhino.Article
	g.Expect(json.Unmarshal([]byte(stdout), &records)).To(Succeed())
	g.Expect(records).To(HaveKey(articleDOI))
	article := records[articleDOI]
	g.Expect(article.DOI).To(Equal(articleDOI))
	g.Expect(article.LastModified).To(Equal("2012-06-20T00:00:00Z"))
	g.Expect(article.AssetDOIs()).To(Equal([]string{articleDOI, articleDOI + ".g001"}))
	g.Expect(article.Assets[articleDOI+".g001"][articleDOI+".g001.TIF"].MD5).To(Equal(testserver.MD5Of([]byte("tif"))))

	stdout, code = run(t, "meta", "--server", srv.URL(), articleDOI)
	g.Expect(code).To(Equal(0))
	records = nil
	g.Expect(yaml.Unmarshal([]byte(stdout), &records)).To(Succeed())
	g.Expect(records[articleDOI].Assets).To(HaveLen(2))
}

func TestAssetFilesCmd(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t, articleDOI, "10.1371/journal.pbio.0030408")

	stdout, code := run(t, "asset-files", "--server", srv.URL(), "pone.0038869", "pbio.0030408")
	g.Expect(code).To(Equal(0))

	var files map[string]map[string][]string
	g.Expect(yaml.Unmarshal([]byte(stdout), &files)).To(Succeed())
	g.Expect(files).To(HaveLen(2))
	g.Expect(files[articleDOI]).To(Equal(map[string][]string{
		articleDOI:           {articleDOI + ".PDF", articleDOI + ".XML"},
		articleDOI + ".g001": {articleDOI + ".g001.TIF"},
	}))
}

func TestAssetMetaCmd(t *testing.T) {
	g := NewWithT(t)
	srv := newServer(t, articleDOI)

	stdout, code := run(t, "asset-meta", "--server", srv.URL(), "-o", "json",
		articleDOI+".g001", "pone.0038869.g009")
	g.Expect(code).To(Equal(2))

	var records map[string]rhino.AssetFiles
	g.Expect(json.Unmarshal([]byte(stdout), &records)).To(Succeed())
	g.Expect(records).To(HaveLen(1))
	g.Expect(records[articleDOI+".g001"]).To(HaveKey(articleDOI + ".g001.TIF"))
	g.Expect(records[articleDOI+".g001"][articleDOI+".g001.TIF"].Size).To(Equal(int64(3)))

	_, code = run(t, "asset-meta", "--server", srv.URL(), "pone.0038869.g009")
	g.Expect(code).To(Equal(3))
}

func TestInspectCmd_Configuration(t *testing.T) {
	srv := newServer(t, articleDOI)

	tests := []struct {
		name string
		args []string
	}{
		{name: "meta of asset", args: []string{"meta", "--server", srv.URL(), articleDOI + ".g001"}},
		{name: "asset files of asset", args: []string{"asset-files", "--server", srv.URL(), articleDOI + ".g001"}},
		{name: "output format", args: []string{"meta", "--server", srv.URL(), "-o", "xml", articleDOI}},
		{name: "invalid DOI", args: []string{"asset-meta", "--server", srv.URL(), "10.1371/not a doi"}},
		{name: "no arguments", args: []string{"meta", "--server", srv.URL()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			stdout, code := run(t, tt.args...)
			g.Expect(code).To(Equal(1))
			g.Expect(stdout).To(BeEmpty())
		})
	}
	g := NewWithT(t)
	g.Expect(srv.Requests(testserver.ArticlePath(articleDOI))).To(BeZero())
}
