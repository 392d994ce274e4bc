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


// Package manifest builds, serializes and validates the MANIFEST.xml
// document describing the content of an ingestible archive.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"io"
	"regexp"

	"github.com/ambraproject/rhino-pack/fault"
)

const (
	// FileName is the archive entry holding the manifest.
	FileName = "MANIFEST.xml"
	// DTDFileName is the archive entry holding the DTD.
	DTDFileName = "manifest.dtd"

	// Header is written in front of the manifest element.
	Header = `<?xml version="1.1" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE manifest SYSTEM "` + DTDFileName + `">` + "\n"

	// StrikingImage is the value of the strkImage attribute of the object
	// designated as the striking image of the article.
	StrikingImage = "True"
)

// DTD is the document type definition every manifest conforms to.
//
//go:embed manifest.dtd
var DTD []byte

// Manifest is the root element of the manifest document.
type Manifest struct {
	XMLName xml.Name      `xml:"manifest"`
	Bundle  ArticleBundle `xml:"articleBundle"`
}

// ArticleBundle holds the article element followed by one object element
// per non-root asset.
type ArticleBundle struct {
	Article Article  `xml:"article"`
	Objects []Object `xml:"object"`
}

// Article describes the root asset of the article.
type Article struct {
	URI             string           `xml:"uri,attr"`
	MainEntry       string           `xml:"main-entry,attr"`
	Representations []Representation `xml:"representation"`
}

// Object describes a secondary asset such as a figure or a supplement.
type Object struct {
	URI             string           `xml:"uri,attr"`
	StrikingImage   string           `xml:"strkImage,attr,omitempty"`
	Representations []Representation `xml:"representation"`
}

// Representation binds a representation name to an archive entry.
type Representation struct {
	Name  string `xml:"name,attr"`
	Entry string `xml:"entry,attr"`
}

// Entries returns the archive entry names referenced by the manifest, in
// document order.
func (m *Manifest) Entries() []string {
	var entries []string
	for _, r := range m.Bundle.Article.Representations {
		entries = append(entries, r.Entry)
	}
	for _, o := range m.Bundle.Objects {
		for _, r := range o.Representations {
			entries = append(entries, r.Entry)
		}
	}
	return entries
}

// MainEntry returns the archive entry holding the article XML.
func (m *Manifest) MainEntry() string {
	return m.Bundle.Article.MainEntry
}

// StrikingImageURI returns the URI of the object flagged as the striking
// image, or an empty string.
func (m *Manifest) StrikingImageURI() string {
	for _, o := range m.Bundle.Objects {
		if o.StrikingImage != "" {
			return o.URI
		}
	}
	return ""
}

// Marshal returns the manifest document including the XML declaration
// and the document type declaration.
func (m *Manifest) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fault.Wrap(fault.Protocol, err, "failed to encode manifest")
	}
	var buf bytes.Buffer
	buf.Grow(len(Header) + len(body) + 1)
	buf.WriteString(Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteTo implements io.WriterTo.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	b, err := m.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

var xmlDeclRegexp = regexp.MustCompile(`^\s*<\?xml[^?]*\?>`)

// Parse decodes a manifest document. The XML declaration is skipped since
// manifests declare version 1.1, which encoding/xml refuses.
func Parse(data []byte) (*Manifest, error) {
	data = xmlDeclRegexp.ReplaceAll(data, nil)
	m := &Manifest{}
	if err := xml.Unmarshal(data, m); err != nil {
		return nil, fault.Wrap(fault.Protocol, err, "failed to decode manifest")
	}
	return m, nil
}

// Validate checks the manifest against the rules of the DTD and the
// archive layout: required attributes are set, every element lists at
// least one representation, entries are unique, the main entry is the
// XML representation of the article and at most one object is flagged as
// the striking image.
func (m *Manifest) Validate() error {
	a := m.Bundle.Article
	if a.URI == "" {
		return fault.New(fault.Protocol, "article has no uri")
	}
	if a.MainEntry == "" {
		return fault.New(fault.Protocol, "article '%s' has no main-entry", a.URI)
	}
	if len(a.Representations) == 0 {
		return fault.New(fault.Protocol, "article '%s' has no representation", a.URI)
	}

	seen := map[string]bool{}
	check := func(uri string, reps []Representation) error {
		for _, r := range reps {
			if r.Name == "" || r.Entry == "" {
				return fault.New(fault.Protocol, "incomplete representation in '%s'", uri)
			}
			if seen[r.Entry] {
				return fault.New(fault.Protocol, "duplicate entry '%s'", r.Entry)
			}
			seen[r.Entry] = true
		}
		return nil
	}
	if err := check(a.URI, a.Representations); err != nil {
		return err
	}

	mainFound := false
	for _, r := range a.Representations {
		if r.Entry == a.MainEntry && r.Name == xmlRepresentation {
			mainFound = true
		}
	}
	if !mainFound {
		return fault.New(fault.Protocol, "main-entry '%s' is not the XML representation of '%s'", a.MainEntry, a.URI)
	}

	striking := 0
	for _, o := range m.Bundle.Objects {
		if o.URI == "" {
			return fault.New(fault.Protocol, "object has no uri")
		}
		if len(o.Representations) == 0 {
			return fault.New(fault.Protocol, "object '%s' has no representation", o.URI)
		}
		if err := check(o.URI, o.Representations); err != nil {
			return err
		}
		if o.StrikingImage != "" {
			striking++
		}
	}
	if striking > 1 {
		return fault.New(fault.Protocol, "%d objects are flagged as striking image", striking)
	}
	return nil
}

